package generic

// Void is a zero-size placeholder value, for when a type parameter is required but no data is.
type Void = struct{}

func NewVoid() Void {
	return Void{}
}
