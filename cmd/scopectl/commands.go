package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/hfujise/scopectl/internal/config"
	"github.com/hfujise/scopectl/internal/configstore"
	"github.com/hfujise/scopectl/internal/discovery"
	"github.com/hfujise/scopectl/internal/logging"
	"github.com/hfujise/scopectl/internal/panel"
	"github.com/hfujise/scopectl/internal/server"
	"github.com/hfujise/scopectl/internal/transport"
)

// Command flags
var (
	deviceHost  string
	devicePort  int
	slotDirFlag string
	scanTimeout int
	outputPath  string
	listenAddr  string
	logLevel    string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceHost, "host", "", "Instrument network address (skips USB discovery)")
	rootCmd.PersistentFlags().IntVar(&devicePort, "port", transport.DefaultSCPIPort, "Instrument SCPI socket port")
	rootCmd.PersistentFlags().StringVar(&slotDirFlag, "slot-dir", "", "Directory for configuration slot files")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(idnCmd)
	rootCmd.AddCommand(captureCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(undoSaveCmd)
	rootCmd.AddCommand(undoLoadCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(panelCmd)
}

// initLogging configures the log level from the flag or environment
func initLogging() {
	if logLevel != "" {
		_ = logging.Initialize(logLevel)
		return
	}
	logging.InitializeFromEnv()
}

// scanCmd discovers instruments on the network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for SCPI instruments on the network",
	Long: `Scan for network-attached instruments using mDNS/DNS-SD discovery.

This command listens for mDNS broadcasts from instruments advertising a
raw SCPI socket and displays each one with its address and metadata.
USB-attached units do not advertise; use 'scopectl idn' to probe USB.`,
	Example: `  # Scan for 5 seconds (default)
  scopectl scan

  # Longer scan for slow networks
  scopectl scan --timeout 15`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", 5, "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	initLogging()
	fmt.Printf("Scanning for instruments (timeout: %ds)...\n\n", scanTimeout)

	instruments, err := discovery.Scan(time.Duration(scanTimeout) * time.Second)
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(instruments) == 0 {
		fmt.Println("No instruments found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the oscilloscope is powered on")
		fmt.Println("  - Check the network option is installed and enabled")
		fmt.Println("  - USB-attached units do not advertise; try 'scopectl idn'")
		fmt.Println("  - Use --host to specify the address manually")
		return nil
	}

	fmt.Printf("Found %d instrument(s):\n\n", len(instruments))
	for i, inst := range instruments {
		fmt.Printf("%d. %s\n", i+1, inst.Name)
		fmt.Printf("   Host:    %s\n", inst.Hostname)
		fmt.Printf("   Address: %s\n", inst.Addr())
		if len(inst.Metadata) > 0 {
			fmt.Printf("   Metadata: %v\n", inst.Metadata)
		}
		fmt.Println()
	}

	fmt.Println("Use 'scopectl idn --host <address>' to identify an instrument")
	return nil
}

// idnCmd identifies the connected oscilloscope
var idnCmd = &cobra.Command{
	Use:   "idn",
	Short: "Identify the connected oscilloscope",
	Long: `Connect to the oscilloscope and print its identification: model
family, channel count, address and installed options.`,
	Example: `  # Probe USB, falling back to the network
  scopectl idn

  # Probe a specific network address
  scopectl idn --host 192.168.4.16`,
	RunE: runIdn,
}

func runIdn(cmd *cobra.Command, args []string) error {
	initLogging()
	s, err := connectSession()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	fmt.Printf("Family:   %s\n", s.Family())
	fmt.Printf("Model:    %s\n", identityField(s.Identity(), 1))
	fmt.Printf("Serial:   %s\n", identityField(s.Identity(), 2))
	fmt.Printf("Channels: %d\n", s.Family().Channels())
	fmt.Printf("Address:  %s\n", s.Addr())
	fmt.Printf("Options:  %s\n", s.Options())
	return nil
}

// captureCmd captures a display screenshot
var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a screenshot of the oscilloscope display",
	Long: `Capture the current display as a color JPEG image.

Acquisition is stopped for the duration of the transfer and the image
is read over the block-data protocol.`,
	Example: `  # Capture to a timestamped file in the current directory
  scopectl capture

  # Capture to a specific file
  scopectl capture -o trace.jpg`,
	RunE: runCapture,
}

func init() {
	captureCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file (default DL74x0-<timestamp>.jpg)")
}

func runCapture(cmd *cobra.Command, args []string) error {
	initLogging()
	s, err := connectSession()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	fmt.Println("Capturing screenshot...")
	image, err := s.CaptureImage()
	if err != nil {
		return err
	}

	path := outputPath
	if path == "" {
		path = fmt.Sprintf("DL74x0-%s.jpg", time.Now().Format("20060102-150405"))
	}
	if err := os.WriteFile(path, image, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Printf("✓ Screenshot saved to %s (%d bytes)\n", path, len(image))
	return nil
}

// saveCmd saves the full configuration to a slot
var saveCmd = &cobra.Command{
	Use:   "save <slot>",
	Short: "Save the oscilloscope configuration to a slot (1-8)",
	Long: `Query the full configuration of the connected oscilloscope and save
it to the numbered slot. A snapshot already in the slot is moved to the
backup slot first, so 'scopectl undo-save' can revert the operation.`,
	Example: `  scopectl save 3`,
	Args:    cobra.ExactArgs(1),
	RunE:    runSave,
}

func runSave(cmd *cobra.Command, args []string) error {
	initLogging()
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}

	ctrl, s, err := newController()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	fmt.Printf("Saving configuration to slot %d...\n", slot)
	n, err := ctrl.Save(slot)
	if err != nil {
		return fmt.Errorf("%s", configstore.Message(err))
	}
	fmt.Printf("✓ Configuration saved to slot %d\n", n)
	return nil
}

// loadCmd applies a saved configuration slot
var loadCmd = &cobra.Command{
	Use:   "load <slot>",
	Short: "Load the oscilloscope configuration from a slot (1-8)",
	Long: `Apply the snapshot in the numbered slot to the connected
oscilloscope. The live configuration is backed up first, so
'scopectl undo-load' can revert the operation. Lines that the unit
rejects are skipped; the rest of the snapshot is still applied.`,
	Example: `  scopectl load 3`,
	Args:    cobra.ExactArgs(1),
	RunE:    runLoad,
}

func runLoad(cmd *cobra.Command, args []string) error {
	initLogging()
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}

	ctrl, s, err := newController()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	fmt.Printf("Loading configuration from slot %d...\n", slot)
	n, err := ctrl.Load(slot)
	if err != nil {
		return fmt.Errorf("%s", configstore.Message(err))
	}
	fmt.Printf("✓ Configuration loaded from slot %d\n", n)
	return nil
}

// undoSaveCmd reverts the most recent save
var undoSaveCmd = &cobra.Command{
	Use:   "undo-save",
	Short: "Revert the most recent save",
	Long: `Move the backup snapshot back into the slot displaced by the most
recent save. Only the latest save in this invocation's slot directory
can be undone; the backup holds exactly one level.`,
	RunE: runUndoSave,
}

func runUndoSave(cmd *cobra.Command, args []string) error {
	initLogging()
	ctrl, s, err := newController()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	if err := ctrl.UndoSave(); err != nil {
		return fmt.Errorf("%s", configstore.Message(err))
	}
	fmt.Println("✓ Last save undone")
	return nil
}

// undoLoadCmd reverts the most recent load
var undoLoadCmd = &cobra.Command{
	Use:   "undo-load",
	Short: "Revert the most recent load",
	Long: `Replay the backup snapshot taken before the most recent load,
restoring the oscilloscope to its pre-load state, then delete the
backup.`,
	RunE: runUndoLoad,
}

func runUndoLoad(cmd *cobra.Command, args []string) error {
	initLogging()
	ctrl, s, err := newController()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	fmt.Println("Restoring pre-load configuration...")
	if err := ctrl.UndoLoad(); err != nil {
		return fmt.Errorf("%s", configstore.Message(err))
	}
	fmt.Println("✓ Last load undone")
	return nil
}

// sendCmd sends a raw command
var sendCmd = &cobra.Command{
	Use:   "send <command>",
	Short: "Send a raw command to the oscilloscope",
	Long: `Send one raw command string to the connected oscilloscope. A
command ending in '?' is treated as a query and its reply is printed.`,
	Example: `  # Query the timebase
  scopectl send ':TIMebase:TDIV?'

  # Set the timebase
  scopectl send ':TIMebase:TDIV 1ms'`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	initLogging()
	s, err := connectSession()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	command := args[0]
	if strings.HasSuffix(strings.TrimSuffix(command, ";"), "?") {
		reply, err := s.Query(command)
		if err != nil {
			return err
		}
		fmt.Println(reply)
		return nil
	}
	return s.Send(command)
}

// serveCmd runs the remote panel server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP remote panel server",
	Long: `Connect to the oscilloscope and expose it over HTTP: screenshot
capture, slot save/load and undo, plus a websocket event feed at
/events for connected panels. Requests are serialized; the instrument
handles one transaction at a time.`,
	Example: `  # Listen on the configured address (default localhost:8742)
  scopectl serve

  # Listen on all interfaces
  scopectl serve --listen 0.0.0.0:8742`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (host:port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctrl, s, err := newController()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	addr := listenAddr
	if addr == "" {
		if reg, err := config.LoadRegistry(); err == nil {
			addr = reg.Preferences.ListenAddr
		}
	}
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid listen address %q: %w", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid listen port %q: %w", portStr, err)
	}

	level := logLevel
	if level == "" {
		level = "info"
	}
	srv, err := server.New(&server.Config{Host: host, Port: port, LogLevel: level}, ctrl)
	if err != nil {
		return err
	}

	fmt.Printf("Remote panel server listening on %s\n", addr)
	return srv.Start()
}

// panelCmd launches the interactive front panel
var panelCmd = &cobra.Command{
	Use:   "panel",
	Short: "Launch the interactive front panel",
	Long: `Launch the terminal front panel: instrument status, screenshot
capture and slot operations on single key presses.

This is the default when scopectl runs without arguments on a
terminal.`,
	Example: `  scopectl panel
  # Or simply (panel is default on a terminal):
  scopectl`,
	RunE: runPanel,
}

func runPanel(cmd *cobra.Command, args []string) error {
	initLogging()
	ctrl, s, err := newController()
	if err != nil {
		return err
	}
	defer s.Disconnect()

	saveDir, err := os.Getwd()
	if err != nil {
		saveDir = "."
	}

	p := tea.NewProgram(panel.New(ctrl, saveDir))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("panel error: %w", err)
	}
	return nil
}

// parseSlot validates a slot number argument
func parseSlot(arg string) (int, error) {
	slot, err := strconv.Atoi(arg)
	if err != nil || slot < configstore.MinSlot || slot > configstore.MaxSlot {
		return 0, fmt.Errorf("slot must be a number between %d and %d", configstore.MinSlot, configstore.MaxSlot)
	}
	return slot, nil
}
