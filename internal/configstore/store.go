package configstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hfujise/scopectl/internal/logging"
	"github.com/hfujise/scopectl/internal/scope"
)

const (
	// FilePrefix names the slot files on disk (DL74x0-1.dat .. DL74x0-8.dat)
	FilePrefix = "DL74x0-"

	// BackupName is the single shared backup slot
	BackupName = "bkup"

	// MinSlot and MaxSlot bound the numbered slots
	MinSlot = 1
	MaxSlot = 8
)

// Device is the narrow view of the instrument session the store needs.
// *scope.Session satisfies it.
type Device interface {
	Connected() bool
	Family() scope.Family
	HasOption(token string) bool
	Query(cmd string) (string, error)
	Send(cmd string) error
	SetTimeout(d time.Duration)
	Timeout() time.Duration
}

// State is the configuration store's operation state. Idle is initial and
// terminal after every operation; any failure returns to Idle.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateFiltering
	StatePersisting
	StateApplying
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateFiltering:
		return "filtering"
	case StatePersisting:
		return "persisting"
	case StateApplying:
		return "applying"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// sectionSpec describes one configuration section to query during a
// snapshot
type sectionSpec struct {
	name  string
	query string
}

// Section order of a full snapshot. Channel sections are inserted after
// acquire, one per channel of the identified family.
var preChannelSections = []sectionSpec{
	{SectionAcquire, ":ACQuire?"},
}

var postChannelSections = []sectionSpec{
	{SectionCursor, ":CURSor?"},
	{SectionDisplay, ":DISPlay?"},
	{SectionMath, ":MATH?"},
	{SectionMeasure, ":MEASure?"},
	{SectionSearch, ":SEARch?"},
	{SectionPhase, ":PHASe?"},
	{SectionTimebase, ":TIMebase?"},
	{SectionTrigger, ":TRIGger?"},
	{SectionZoom, ":ZOOM?"},
}

// Store orchestrates full-state query/apply against the device and the
// slot files on disk, with a single backup slot enabling one level of
// undo across save and load.
//
// Not safe for concurrent use; the store drives one exclusive instrument
// connection.
type Store struct {
	dev Device
	dir string

	state State

	// lastSaveSlot is the slot displaced by the most recent save, or 0
	// when the last mutating operation was not a save
	lastSaveSlot int
}

// NewStore creates a store writing slot files under dir
func NewStore(dev Device, dir string) *Store {
	return &Store{dev: dev, dir: dir}
}

// State returns the current operation state
func (st *Store) State() State {
	return st.state
}

// SlotPath returns the file path of a numbered slot
func (st *Store) SlotPath(n int) string {
	return filepath.Join(st.dir, fmt.Sprintf("%s%d.dat", FilePrefix, n))
}

// BackupPath returns the file path of the shared backup slot
func (st *Store) BackupPath() string {
	return filepath.Join(st.dir, fmt.Sprintf("%s%s.dat", FilePrefix, BackupName))
}

// sections returns the full query list for the identified family
func (st *Store) sections() []sectionSpec {
	specs := make([]sectionSpec, 0, 16)
	specs = append(specs, preChannelSections...)
	for ch := 1; ch <= st.dev.Family().Channels(); ch++ {
		specs = append(specs, sectionSpec{SectionChannel, fmt.Sprintf(":CHANnel%d?", ch)})
	}
	return append(specs, postChannelSections...)
}

// Capture queries every configuration section of the connected device and
// assembles the composite snapshot string: a leading :STOP; directive
// followed by the filtered, chunked command lines of each section. It has
// no side effects on failure.
func (st *Store) Capture() (string, error) {
	if !st.dev.Connected() {
		return "", &StoreError{Kind: ErrKindNotConnected, Message: "Oscilloscope not found"}
	}
	defer st.toIdle()

	var b strings.Builder
	b.WriteString(":STOP;\n")

	for _, spec := range st.sections() {
		st.state = StateFetching
		text, err := st.dev.Query(spec.query)
		if err != nil {
			return "", &StoreError{
				Kind:    ErrKindNoResponse,
				Message: "no response from the oscilloscope. Aborted.",
				Err:     err,
			}
		}
		if strings.TrimSpace(text) == "" {
			return "", &StoreError{
				Kind:    ErrKindNoResponse,
				Message: fmt.Sprintf("no response for %q. Aborted.", spec.query),
			}
		}

		st.state = StateFiltering
		text = FilterSection(spec.name, text, st.dev.HasOption)

		for _, chunk := range Chunk(text) {
			b.WriteString(chunk)
		}
	}

	return b.String(), nil
}

// SaveSlot captures a fresh snapshot and writes it to slot n. A snapshot
// already in the slot is copied to the backup first, enabling UndoSave.
// Returns the slot number on success, 0 on failure.
func (st *Store) SaveSlot(n int) (int, error) {
	if n < MinSlot || n > MaxSlot {
		return 0, &StoreError{Kind: ErrKindInvalidSlot, Message: fmt.Sprintf("slot %d out of range %d..%d", n, MinSlot, MaxSlot)}
	}

	snapshot, err := st.Capture()
	if err != nil {
		return 0, err
	}

	st.state = StatePersisting
	defer st.toIdle()

	slotFile := st.SlotPath(n)
	if _, err := os.Stat(slotFile); err == nil {
		if err := copyFile(slotFile, st.BackupPath()); err != nil {
			return 0, &StoreError{Kind: ErrKindPersist, Message: "failed to back up previous snapshot", Err: err}
		}
	}

	if err := os.WriteFile(slotFile, []byte(snapshot), 0o644); err != nil {
		return 0, &StoreError{Kind: ErrKindPersist, Message: fmt.Sprintf("failed to write %s", slotFile), Err: err}
	}

	st.lastSaveSlot = n
	logging.Info("Configuration saved",
		zap.Int("slot", n),
		zap.Int("bytes", len(snapshot)),
	)
	return n, nil
}

// LoadSlot applies the snapshot in slot n to the device. The live state
// is captured into the backup slot first (with the extended timeout), so
// a load is always undoable. Lines are applied individually, best effort:
// a failed line is logged and skipped, never rolled back mid-sequence.
// Returns the slot number on success, 0 on failure.
func (st *Store) LoadSlot(n int) (int, error) {
	if n < MinSlot || n > MaxSlot {
		return 0, &StoreError{Kind: ErrKindInvalidSlot, Message: fmt.Sprintf("slot %d out of range %d..%d", n, MinSlot, MaxSlot)}
	}
	if !st.dev.Connected() {
		return 0, &StoreError{Kind: ErrKindNotConnected, Message: "Oscilloscope not found"}
	}

	// Snapshot the pre-load state for undo. The full fetch needs the
	// extended timeout; the previous value is restored on every path.
	prev := st.dev.Timeout()
	st.dev.SetTimeout(scope.ExtendedTimeout)
	live, err := st.Capture()
	st.dev.SetTimeout(prev)
	if err != nil {
		return 0, err
	}

	st.state = StatePersisting
	defer st.toIdle()
	if err := os.WriteFile(st.BackupPath(), []byte(live), 0o644); err != nil {
		return 0, &StoreError{Kind: ErrKindPersist, Message: "failed to write backup", Err: err}
	}

	slotFile := st.SlotPath(n)
	data, err := os.ReadFile(slotFile)
	if err != nil {
		return 0, &StoreError{
			Kind:    ErrKindMissingSnapshot,
			Message: fmt.Sprintf("%s not found.", slotFile),
			Err:     err,
		}
	}

	st.state = StateApplying
	st.applyLines(string(data))

	st.lastSaveSlot = 0
	logging.Info("Configuration loaded", zap.Int("slot", n))
	return n, nil
}

// UndoSave reverts the most recent save by moving the backup snapshot
// back into the slot it displaced, or by emptying the slot when it held
// no snapshot before the save. No-op when the last mutating operation
// was not a save.
func (st *Store) UndoSave() error {
	if st.lastSaveSlot < MinSlot {
		return nil
	}
	defer st.toIdle()
	st.state = StatePersisting

	if _, err := os.Stat(st.BackupPath()); err == nil {
		if err := os.Rename(st.BackupPath(), st.SlotPath(st.lastSaveSlot)); err != nil {
			return &StoreError{Kind: ErrKindPersist, Message: "failed to restore backup", Err: err}
		}
	} else {
		// The slot was empty before the save; undoing means emptying it
		if err := os.Remove(st.SlotPath(st.lastSaveSlot)); err != nil && !os.IsNotExist(err) {
			return &StoreError{Kind: ErrKindPersist, Message: "failed to remove saved snapshot", Err: err}
		}
	}
	logging.Info("Save undone", zap.Int("slot", st.lastSaveSlot))
	st.lastSaveSlot = 0
	return nil
}

// UndoLoad reverts the most recent load by replaying the backup snapshot
// to the device, then deletes the backup.
func (st *Store) UndoLoad() error {
	data, err := os.ReadFile(st.BackupPath())
	if err != nil {
		return &StoreError{
			Kind:    ErrKindMissingSnapshot,
			Message: fmt.Sprintf("%s not found.", st.BackupPath()),
			Err:     err,
		}
	}

	st.state = StateApplying
	defer st.toIdle()
	st.applyLines(string(data))

	if err := os.Remove(st.BackupPath()); err != nil {
		return &StoreError{Kind: ErrKindPersist, Message: "failed to remove backup", Err: err}
	}
	logging.Info("Load undone")
	return nil
}

// SetConfig sends one command line to the device under the extended
// timeout, restoring the previous timeout on every exit path. On a
// transport timeout a best-effort clear-status is issued before the
// failure is reported; no fault escapes this boundary.
func (st *Store) SetConfig(line string) error {
	if !st.dev.Connected() {
		return &StoreError{Kind: ErrKindNotConnected, Message: "Oscilloscope not found"}
	}

	prev := st.dev.Timeout()
	st.dev.SetTimeout(scope.ExtendedTimeout)
	defer st.dev.SetTimeout(prev)

	if err := st.dev.Send(line); err != nil {
		if serr := st.dev.Send("*CLS"); serr != nil {
			logging.Debug("Clear-status write failed", zap.Error(serr))
		}
		return &StoreError{Kind: ErrKindNoResponse, Message: "command timed out", Err: err}
	}
	return nil
}

// applyLines replays snapshot lines in file order, best effort
func (st *Store) applyLines(snapshot string) {
	for _, line := range strings.Split(snapshot, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := st.SetConfig(line); err != nil {
			// Partial application is a documented limitation; keep going
			logging.Warn("Command line failed during apply",
				zap.String("line", line),
				zap.Error(err),
			)
		}
	}
}

func (st *Store) toIdle() {
	st.state = StateIdle
}

// copyFile copies src over dst
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
