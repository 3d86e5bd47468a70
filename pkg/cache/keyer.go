package cache

// Keyer generates cache keys.
type Keyer interface {
	// ProgramKey returns the key of the program rendered from the raster
	// with content hash rasterHash.
	ProgramKey(rasterHash string, opts ProgramKeyOpts) string
}

// ProgramKeyOpts lists every option that affects the emitted program.
type ProgramKeyOpts struct {
	Mode            string  `json:"mode"`
	Absolute        bool    `json:"absolute"`
	Metric          bool    `json:"metric"`
	ZClearance      float64 `json:"z_clearance"`
	ZCuttingHeight  float64 `json:"z_cutting_height"`
	AbsoluteXStart  float64 `json:"absolute_x_start"`
	AbsoluteYStart  float64 `json:"absolute_y_start"`
	PlungeFeedrate  float64 `json:"plunge_feedrate"`
	MillingFeedrate float64 `json:"milling_feedrate"`
	Resolution      float64 `json:"resolution"`
	OriginX         float64 `json:"origin_x"`
	OriginY         float64 `json:"origin_y"`
	StartX          float64 `json:"start_x"`
	StartY          float64 `json:"start_y"`
	Tolerance       float64 `json:"tolerance"`
}

// DefaultKeyer hashes key components with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer creates the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ProgramKey returns "program:<sha256>".
func (DefaultKeyer) ProgramKey(rasterHash string, opts ProgramKeyOpts) string {
	return hashKey("program", rasterHash, opts)
}
