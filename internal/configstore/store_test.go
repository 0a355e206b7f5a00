package configstore

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/hfujise/scopectl/internal/scope"
)

// fakeDevice is an in-memory Device with canned query replies and a
// record of every sent command
type fakeDevice struct {
	connected bool
	family    scope.Family
	options   string
	replies   map[string]string
	queries   []string
	sends     []string
	sendErr   error
	timeout   time.Duration
}

func (d *fakeDevice) Connected() bool      { return d.connected }
func (d *fakeDevice) Family() scope.Family { return d.family }

func (d *fakeDevice) HasOption(token string) bool {
	return strings.Contains(strings.ToUpper(d.options), strings.ToUpper(token))
}

func (d *fakeDevice) Query(cmd string) (string, error) {
	d.queries = append(d.queries, cmd)
	reply, ok := d.replies[cmd]
	if !ok {
		return "", fmt.Errorf("no reply scripted for %q", cmd)
	}
	return reply, nil
}

func (d *fakeDevice) Send(cmd string) error {
	d.sends = append(d.sends, cmd)
	if d.sendErr != nil && cmd != "*CLS" {
		return d.sendErr
	}
	return nil
}

func (d *fakeDevice) SetTimeout(t time.Duration) { d.timeout = t }
func (d *fakeDevice) Timeout() time.Duration     { return d.timeout }

// sectionReplies scripts a minimal reply for every section the store
// queries for the given family
func sectionReplies(family scope.Family) map[string]string {
	r := map[string]string{
		":ACQuire?":  ":ACQUIRE:RLENGTH 10000;MODE NORMAL;",
		":CURSor?":   ":CURSOR:TYPE HORIZONTAL;",
		":DISPlay?":  ":DISPLAY:FORMAT SINGLE;:DISPLAY:RGB:WAVEFORM:PODA 1;:DISPLAY:INTENSITY 50;",
		":MATH?":     ":MATH1:MODE OFF;",
		":MEASure?":  ":MEASURE:MODE OFF;",
		":SEARch?":   ":SEARCH:TYPE EDGE;",
		":PHASe?":    ":PHASE:MODE OFF;",
		":TIMebase?": ":TIMEBASE:TDIV 1MS;",
		":TRIGger?":  ":TRIGGER:MODE AUTO;",
		":ZOOM?":     ":ZOOM:MODE OFF;",
	}
	for ch := 1; ch <= family.Channels(); ch++ {
		r[fmt.Sprintf(":CHANnel%d?", ch)] = fmt.Sprintf(":CHANNEL%d:DISPLAY ON;PROBE 10;", ch)
	}
	return r
}

func newFakeDevice(family scope.Family, options string) *fakeDevice {
	return &fakeDevice{
		connected: true,
		family:    family,
		options:   options,
		replies:   sectionReplies(family),
		timeout:   scope.DefaultTimeout,
	}
}

func newTestStore(t *testing.T, dev *fakeDevice) *Store {
	t.Helper()
	return NewStore(dev, t.TempDir())
}

func readSlot(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

// TestCapture_SnapshotShape verifies the composite snapshot leads with
// the stop directive and carries one sync-prefixed line per section
func TestCapture_SnapshotShape(t *testing.T) {
	dev := newFakeDevice(scope.FamilyDL7440, "")
	st := newTestStore(t, dev)

	snapshot, err := st.Capture()
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !strings.HasPrefix(snapshot, ":STOP;\n") {
		t.Errorf("snapshot does not lead with the stop directive: %q", snapshot[:20])
	}
	lines := strings.Split(strings.TrimSuffix(snapshot, "\n"), "\n")
	// stop line + acquire + 4 channels + 9 trailing sections
	if len(lines) != 1+1+4+9 {
		t.Errorf("got %d snapshot lines, want %d", len(lines), 15)
	}
	for i, line := range lines[1:] {
		if !strings.HasPrefix(line, "*WAI;") {
			t.Errorf("line %d lacks sync prefix: %q", i+1, line)
		}
	}
	if st.State() != StateIdle {
		t.Errorf("state after Capture = %v, want idle", st.State())
	}
}

// TestCapture_ChannelCountPerFamily verifies the number of channel
// queries follows the identified family
func TestCapture_ChannelCountPerFamily(t *testing.T) {
	for _, tc := range []struct {
		family   scope.Family
		channels int
	}{
		{scope.FamilyDL7440, 4},
		{scope.FamilyDL7480, 8},
	} {
		dev := newFakeDevice(tc.family, "")
		st := newTestStore(t, dev)
		if _, err := st.Capture(); err != nil {
			t.Fatalf("%v: Capture: %v", tc.family, err)
		}

		got := 0
		for _, q := range dev.queries {
			if strings.HasPrefix(q, ":CHANnel") {
				got++
			}
		}
		if got != tc.channels {
			t.Errorf("%v: %d channel queries, want %d", tc.family, got, tc.channels)
		}
	}
}

// TestCapture_OptionFiltering verifies option-gated fields are stripped
// from the snapshot unless the option is installed
func TestCapture_OptionFiltering(t *testing.T) {
	dev := newFakeDevice(scope.FamilyDL7440, "")
	st := newTestStore(t, dev)

	snapshot, err := st.Capture()
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if strings.Contains(snapshot, "POD") {
		t.Errorf("logic-pod field survived into the snapshot without the option")
	}

	dev = newFakeDevice(scope.FamilyDL7440, "DL7440,PROBE,LOGIC")
	st = newTestStore(t, dev)
	snapshot, err = st.Capture()
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if !strings.Contains(snapshot, ":DISPLAY:RGB:WAVEFORM:PODA 1") {
		t.Errorf("logic-pod field missing despite installed option")
	}
}

// TestCapture_Failures verifies the not-connected and no-response
// classifications
func TestCapture_Failures(t *testing.T) {
	dev := newFakeDevice(scope.FamilyDL7440, "")
	dev.connected = false
	st := newTestStore(t, dev)
	if _, err := st.Capture(); err == nil {
		t.Error("Capture succeeded without a connection")
	} else if Message(err) != "Oscilloscope not found" {
		t.Errorf("message = %q", Message(err))
	}

	dev = newFakeDevice(scope.FamilyDL7440, "")
	delete(dev.replies, ":TIMebase?")
	st = newTestStore(t, dev)
	_, err := st.Capture()
	if err == nil {
		t.Fatal("Capture succeeded with a dead section query")
	}
	var se *StoreError
	if !errors.As(err, &se) || se.Kind != ErrKindNoResponse {
		t.Errorf("error = %v, want no-response kind", err)
	}
	if st.State() != StateIdle {
		t.Errorf("state after failed Capture = %v, want idle", st.State())
	}
}

// TestSaveSlot_UndoRestoresPrevious verifies a save followed by an undo
// puts the displaced snapshot back and consumes the backup
func TestSaveSlot_UndoRestoresPrevious(t *testing.T) {
	dev := newFakeDevice(scope.FamilyDL7440, "")
	st := newTestStore(t, dev)

	old := "*WAI;:OLD:SNAPSHOT 1\n"
	if err := os.WriteFile(st.SlotPath(3), []byte(old), 0o644); err != nil {
		t.Fatal(err)
	}

	n, err := st.SaveSlot(3)
	if err != nil || n != 3 {
		t.Fatalf("SaveSlot = %d, %v", n, err)
	}
	if got := readSlot(t, st.SlotPath(3)); got == old {
		t.Error("slot still holds the pre-save snapshot")
	}
	if got := readSlot(t, st.BackupPath()); got != old {
		t.Errorf("backup = %q, want displaced snapshot %q", got, old)
	}

	if err := st.UndoSave(); err != nil {
		t.Fatalf("UndoSave: %v", err)
	}
	if got := readSlot(t, st.SlotPath(3)); got != old {
		t.Errorf("slot after undo = %q, want %q", got, old)
	}
	if _, err := os.Stat(st.BackupPath()); !os.IsNotExist(err) {
		t.Error("backup survived the undo")
	}

	// A second undo must be a no-op
	if err := st.UndoSave(); err != nil {
		t.Fatalf("second UndoSave: %v", err)
	}
	if got := readSlot(t, st.SlotPath(3)); got != old {
		t.Errorf("slot after second undo = %q, want %q", got, old)
	}
}

// TestSaveSlot_UndoEmptiesFreshSlot verifies undoing a save into a
// previously empty slot leaves the slot absent again
func TestSaveSlot_UndoEmptiesFreshSlot(t *testing.T) {
	dev := newFakeDevice(scope.FamilyDL7440, "")
	st := newTestStore(t, dev)

	if n, err := st.SaveSlot(5); err != nil || n != 5 {
		t.Fatalf("SaveSlot = %d, %v", n, err)
	}
	if _, err := os.Stat(st.SlotPath(5)); err != nil {
		t.Fatalf("slot file missing after save: %v", err)
	}
	if _, err := os.Stat(st.BackupPath()); !os.IsNotExist(err) {
		t.Error("backup created for a previously empty slot")
	}

	if err := st.UndoSave(); err != nil {
		t.Fatalf("UndoSave: %v", err)
	}
	if _, err := os.Stat(st.SlotPath(5)); !os.IsNotExist(err) {
		t.Error("slot file survived undoing a save into an empty slot")
	}
}

// TestLoadSlot_UndoRestoresLiveState verifies a load backs up the live
// state first and an undo replays that backup command for command
func TestLoadSlot_UndoRestoresLiveState(t *testing.T) {
	dev := newFakeDevice(scope.FamilyDL7440, "")
	st := newTestStore(t, dev)

	live, err := st.Capture()
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}

	slotLines := []string{"*WAI;:ACQUIRE:MODE AVERAGE", "*WAI;:TIMEBASE:TDIV 2MS"}
	snapshot := strings.Join(slotLines, "\n") + "\n"
	if err := os.WriteFile(st.SlotPath(2), []byte(snapshot), 0o644); err != nil {
		t.Fatal(err)
	}

	dev.sends = nil
	n, err := st.LoadSlot(2)
	if err != nil || n != 2 {
		t.Fatalf("LoadSlot = %d, %v", n, err)
	}
	if got := readSlot(t, st.BackupPath()); got != live {
		t.Errorf("backup = %q, want the pre-load live state %q", got, live)
	}
	if len(dev.sends) != len(slotLines) {
		t.Fatalf("device received %d commands, want %d: %v", len(dev.sends), len(slotLines), dev.sends)
	}
	for i, want := range slotLines {
		if dev.sends[i] != want {
			t.Errorf("command %d = %q, want %q", i, dev.sends[i], want)
		}
	}
	if dev.timeout != scope.DefaultTimeout {
		t.Errorf("timeout after load = %v, want %v restored", dev.timeout, scope.DefaultTimeout)
	}

	dev.sends = nil
	if err := st.UndoLoad(); err != nil {
		t.Fatalf("UndoLoad: %v", err)
	}
	var wantLines []string
	for _, line := range strings.Split(live, "\n") {
		if strings.TrimSpace(line) != "" {
			wantLines = append(wantLines, line)
		}
	}
	if len(dev.sends) != len(wantLines) {
		t.Fatalf("undo replayed %d commands, want %d", len(dev.sends), len(wantLines))
	}
	for i, want := range wantLines {
		if dev.sends[i] != want {
			t.Errorf("undo command %d = %q, want %q", i, dev.sends[i], want)
		}
	}
	if _, err := os.Stat(st.BackupPath()); !os.IsNotExist(err) {
		t.Error("backup survived the undo")
	}
}

// TestLoadSlot_MissingSlot verifies loading an absent slot reports the
// file as not found without touching the device state
func TestLoadSlot_MissingSlot(t *testing.T) {
	dev := newFakeDevice(scope.FamilyDL7440, "")
	st := newTestStore(t, dev)

	n, err := st.LoadSlot(7)
	if n != 0 {
		t.Errorf("LoadSlot = %d, want 0", n)
	}
	if !IsMissingSnapshot(err) {
		t.Fatalf("error = %v, want missing-snapshot kind", err)
	}
	if !strings.Contains(Message(err), "not found.") {
		t.Errorf("message = %q, want a not-found report", Message(err))
	}
	if len(dev.sends) != 0 {
		t.Errorf("device received %d commands for an absent slot", len(dev.sends))
	}
	// The live state was still backed up before the slot read
	if _, err := os.Stat(st.BackupPath()); err != nil {
		t.Errorf("backup missing after failed load: %v", err)
	}
}

// TestSlotRangeValidation verifies out-of-range slot numbers are
// rejected before any device traffic
func TestSlotRangeValidation(t *testing.T) {
	dev := newFakeDevice(scope.FamilyDL7440, "")
	st := newTestStore(t, dev)

	for _, n := range []int{0, -1, 9} {
		if _, err := st.SaveSlot(n); err == nil {
			t.Errorf("SaveSlot(%d) succeeded", n)
		}
		if _, err := st.LoadSlot(n); err == nil {
			t.Errorf("LoadSlot(%d) succeeded", n)
		}
	}
	if len(dev.queries) != 0 || len(dev.sends) != 0 {
		t.Error("device was touched for out-of-range slots")
	}
}

// TestUndoLoad_NoBackup verifies undoing without a backup reports the
// backup file as not found
func TestUndoLoad_NoBackup(t *testing.T) {
	dev := newFakeDevice(scope.FamilyDL7440, "")
	st := newTestStore(t, dev)

	err := st.UndoLoad()
	if !IsMissingSnapshot(err) {
		t.Fatalf("error = %v, want missing-snapshot kind", err)
	}
	if len(dev.sends) != 0 {
		t.Error("device received commands without a backup to replay")
	}
}

// TestSetConfig_TimeoutRestoredOnFailure verifies the extended timeout
// is wound back and a clear-status is issued after a failed write
func TestSetConfig_TimeoutRestoredOnFailure(t *testing.T) {
	dev := newFakeDevice(scope.FamilyDL7440, "")
	dev.sendErr = fmt.Errorf("write timed out")
	st := newTestStore(t, dev)

	err := st.SetConfig("*WAI;:ACQUIRE:MODE NORMAL")
	if err == nil {
		t.Fatal("SetConfig succeeded through a failing write")
	}
	if dev.timeout != scope.DefaultTimeout {
		t.Errorf("timeout = %v, want %v restored", dev.timeout, scope.DefaultTimeout)
	}
	if dev.sends[len(dev.sends)-1] != "*CLS" {
		t.Errorf("last command = %q, want a clear-status", dev.sends[len(dev.sends)-1])
	}
}
