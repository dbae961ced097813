package track

// Position represents the geographical coordinates reported by a provider.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64 // meters, 0 when the provider cannot estimate it
}
