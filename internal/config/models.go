package config

import "time"

// Registry represents the entire user configuration file.
// It stores user-defined metadata for known instruments and application
// preferences.
type Registry struct {
	Version     int                    `yaml:"version"`
	Instruments map[string]*Instrument `yaml:"instruments,omitempty"` // Keyed by instrument serial number
	Preferences *Preferences           `yaml:"preferences,omitempty"`
}

// Instrument represents user-defined metadata for a single oscilloscope.
// This is keyed by the unit's serial number (the third *IDN? field) in
// the Registry.
type Instrument struct {
	Nickname string    `yaml:"nickname,omitempty"`  // User-friendly name
	Model    string    `yaml:"model,omitempty"`     // Model string from identification (e.g., "701470")
	LastAddr string    `yaml:"last_addr,omitempty"` // Last known transport address (USB bus/port or host:port)
	LastSeen time.Time `yaml:"last_seen,omitempty"` // Last identification time
	Options  string    `yaml:"options,omitempty"`   // Installed-option string from the last connection
}

// Preferences represents application-wide user preferences.
type Preferences struct {
	// SlotDir is the directory holding configuration slot files.
	// Empty means the configuration directory itself.
	SlotDir string `yaml:"slot_dir,omitempty"`

	// AutoDiscover enables network discovery when no USB unit answers
	AutoDiscover bool `yaml:"auto_discover"`

	// DiscoverTimeout is the network discovery timeout in seconds
	DiscoverTimeout int `yaml:"discover_timeout"`

	// ListenAddr is the default bind address of the remote panel server
	ListenAddr string `yaml:"listen_addr,omitempty"`
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Instruments: make(map[string]*Instrument),
		Preferences: &Preferences{
			AutoDiscover:    true,
			DiscoverTimeout: 5,
			ListenAddr:      "localhost:8742",
		},
	}
}

// GetInstrument retrieves instrument metadata by serial number.
// Returns nil if the unit doesn't exist in the registry.
func (r *Registry) GetInstrument(serial string) *Instrument {
	return r.Instruments[serial]
}

// EnsureInstrument ensures an instrument entry exists in the registry.
// Returns the entry (existing or newly created).
func (r *Registry) EnsureInstrument(serial string) *Instrument {
	if r.Instruments == nil {
		r.Instruments = make(map[string]*Instrument)
	}

	if inst, exists := r.Instruments[serial]; exists {
		return inst
	}

	inst := &Instrument{}
	r.Instruments[serial] = inst
	return inst
}

// RecordConnection updates the last-seen metadata after a successful
// identification.
func (r *Registry) RecordConnection(serial, model, addr, options string) {
	inst := r.EnsureInstrument(serial)
	inst.Model = model
	inst.LastAddr = addr
	inst.LastSeen = time.Now()
	inst.Options = options
}

// SetNickname sets a user-friendly nickname for an instrument.
func (r *Registry) SetNickname(serial, nickname string) {
	r.EnsureInstrument(serial).Nickname = nickname
}
