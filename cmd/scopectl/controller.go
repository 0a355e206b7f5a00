package main

import (
	"fmt"
	"strings"

	"github.com/hfujise/scopectl/internal/config"
	"github.com/hfujise/scopectl/internal/configstore"
	"github.com/hfujise/scopectl/internal/discovery"
	"github.com/hfujise/scopectl/internal/scope"
	"github.com/hfujise/scopectl/internal/server"
	"github.com/hfujise/scopectl/internal/transport"
)

// scopeController binds one session and one configuration store behind
// the controller interface shared by the front panel and the remote
// panel server.
type scopeController struct {
	session *scope.Session
	store   *configstore.Store
}

func (c *scopeController) Status() server.Status {
	if !c.session.Connected() {
		return server.Status{}
	}
	return server.Status{
		Connected: true,
		Model:     identityField(c.session.Identity(), 1),
		Channels:  c.session.Family().Channels(),
		Options:   c.session.Options(),
		Addr:      c.session.Addr(),
	}
}

func (c *scopeController) Capture() ([]byte, error) { return c.session.CaptureImage() }
func (c *scopeController) Save(slot int) (int, error) { return c.store.SaveSlot(slot) }
func (c *scopeController) Load(slot int) (int, error) { return c.store.LoadSlot(slot) }
func (c *scopeController) UndoSave() error            { return c.store.UndoSave() }
func (c *scopeController) UndoLoad() error            { return c.store.UndoLoad() }

// identityField returns one comma-separated field of an identification
// reply (manufacturer, model, serial, firmware)
func identityField(idn string, n int) string {
	fields := strings.Split(idn, ",")
	if n >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[n])
}

// connectSession discovers and identifies the oscilloscope: USB first,
// then the mDNS network fallback when preferences allow it. The --host
// flag skips USB entirely.
func connectSession() (*scope.Session, error) {
	if deviceHost != "" {
		s := scope.NewSession(&transport.TCPSource{Host: deviceHost, Port: devicePort})
		if s.Connect() {
			recordConnection(s)
			return s, nil
		}
		s.Disconnect()
		return nil, fmt.Errorf("no oscilloscope at %s:%d", deviceHost, devicePort)
	}

	s := scope.NewSession(transport.NewUSBHost(transport.YokogawaVendorID))
	if s.Connect() {
		recordConnection(s)
		return s, nil
	}
	s.Disconnect()

	// Network fallback
	reg, err := config.LoadRegistry()
	if err != nil || !reg.Preferences.AutoDiscover {
		return nil, fmt.Errorf("Oscilloscope not found")
	}

	instruments, err := discovery.Scan(discovery.DefaultScanTimeout)
	if err != nil || len(instruments) == 0 {
		return nil, fmt.Errorf("Oscilloscope not found")
	}

	var sources transport.MultiSource
	for _, inst := range instruments {
		sources = append(sources, inst.Source())
	}
	s = scope.NewSession(sources)
	if s.Connect() {
		recordConnection(s)
		return s, nil
	}
	s.Disconnect()
	return nil, fmt.Errorf("Oscilloscope not found")
}

// recordConnection remembers the identified unit in the user registry,
// best effort
func recordConnection(s *scope.Session) {
	reg, err := config.LoadRegistry()
	if err != nil {
		return
	}
	serial := identityField(s.Identity(), 2)
	if serial == "" {
		return
	}
	reg.RecordConnection(serial, identityField(s.Identity(), 1), s.Addr(), s.Options())
	_ = reg.Save()
}

// newController connects to the oscilloscope and wires the slot store
// under it. The caller must Disconnect the returned session.
func newController() (*scopeController, *scope.Session, error) {
	s, err := connectSession()
	if err != nil {
		return nil, nil, err
	}

	dir, err := slotDir()
	if err != nil {
		s.Disconnect()
		return nil, nil, err
	}

	return &scopeController{
		session: s,
		store:   configstore.NewStore(s, dir),
	}, s, nil
}

// slotDir resolves the configuration slot directory: the --slot-dir
// flag, then the registry preference, then the config directory
func slotDir() (string, error) {
	if slotDirFlag != "" {
		return slotDirFlag, nil
	}
	reg, err := config.LoadRegistry()
	if err != nil {
		return "", err
	}
	return reg.SlotDir()
}
