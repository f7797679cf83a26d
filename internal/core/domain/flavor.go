package domain

// ConsensusFlavor identifies which variant of the network consensus a
// cached document belongs to.
type ConsensusFlavor string

const (
	// FlavorMicrodesc is the microdescriptor consensus flavor.
	FlavorMicrodesc ConsensusFlavor = "microdesc"

	// FlavorPlain is the ns (full descriptor) consensus flavor.
	FlavorPlain ConsensusFlavor = "ns"
)

// Valid reports whether f is a known flavor.
func (f ConsensusFlavor) Valid() bool {
	return f == FlavorMicrodesc || f == FlavorPlain
}

// ParseFlavor converts a stored flavor tag back into a ConsensusFlavor.
func ParseFlavor(s string) (ConsensusFlavor, error) {
	f := ConsensusFlavor(s)
	if !f.Valid() {
		return "", ErrInvalidArgument.WithDetails("unknown consensus flavor: " + s)
	}
	return f, nil
}
