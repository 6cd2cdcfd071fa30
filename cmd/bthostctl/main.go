package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/bluekit/bthost"
	"github.com/bluekit/bthost/acl"
	"github.com/bluekit/bthost/h4"
	"github.com/bluekit/bthost/handler"
)

func main() {
	app := cli.NewApp()
	app.Name = "bthostctl"
	app.Usage = "drive the ACL link manager against an emulated or real controller"

	app.Commands = []cli.Command{
		{
			Name:   "demo",
			Usage:  "run a scripted connect/disconnect cycle against the emulator and dump diagnostics",
			Action: runDemo,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "log-level",
					Usage: "default logger verbosity (error, warn, info, debug, trace)",
					Value: "info",
				},
			},
		},
		{
			Name:   "uart",
			Usage:  "open an H4 UART controller and issue a reset",
			Action: runUart,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "path",
					Usage: "serial device path",
					Value: "/dev/ttyUSB0",
				},
			},
		},
		{
			Name:   "hci",
			Usage:  "open a local HCI user channel and issue a reset",
			Action: runHci,
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:  "device",
					Usage: "hci device index, -1 for the first available",
					Value: -1,
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDemo(c *cli.Context) error {
	if err := bthost.SetLogLevel(c.String("log-level")); err != nil {
		return err
	}

	upper := handler.New("main")
	defer upper.Close()

	emu := newEmulator()
	m, err := acl.Init(upper, emu, demoCallbacks(), 8, 8)
	if err != nil {
		return err
	}
	defer acl.TearDown()

	peerA := bthost.AddressWithType{
		Address: bthost.MustParseAddress("aa:bb:cc:dd:ee:01"),
		Type:    bthost.PublicDeviceAddress,
	}

	if ok := <-m.AcceptLeConnectionFrom(peerA, true); !ok {
		return fmt.Errorf("accept list rejected %s", peerA)
	}
	m.CreateClassicConnection(bthost.MustParseAddress("11:22:33:44:55:66"))

	// give the emulator a moment to finish the feature walks
	time.Sleep(100 * time.Millisecond)

	// the emulator assigns handles in order: 0x0010 to the le link
	// accepted above, 0x0011 to the classic link
	m.WriteData(0x0010, acl.RawPacket([]byte{0x01, 0x02, 0x03}))
	m.DisconnectLe(0x0010, bthost.RemoteUserTerminatedConnection, "demo teardown")
	m.DisconnectClassic(0x0011, bthost.RemoteUserTerminatedConnection, "demo teardown")
	time.Sleep(100 * time.Millisecond)

	fmt.Println("--- connection history ---")
	m.DumpConnectionHistory(os.Stdout)
	return nil
}

func demoCallbacks() acl.Callbacks {
	return acl.Callbacks{
		OnSendDataUpwards: func(packet []byte) {
			fmt.Printf("data up: %s\n", hex.EncodeToString(packet))
		},
		OnPacketsCompleted: func(handle uint16, credits uint16) {
			fmt.Printf("credits: handle 0x%04x +%d\n", handle, credits)
		},
		Classic: acl.ClassicCallbacks{
			OnConnected: func(address bthost.Address, handle uint16, encrypted bool, locallyInitiated bool) {
				fmt.Printf("classic connected: %s handle 0x%04x\n", address, handle)
			},
			OnFailed: func(address bthost.Address, reason bthost.ErrorCode, locallyInitiated bool) {
				fmt.Printf("classic failed: %s %s\n", address, reason)
			},
			OnDisconnected: func(status bthost.ErrorCode, handle uint16, reason bthost.ErrorCode) {
				fmt.Printf("classic disconnected: handle 0x%04x reason %s\n", handle, reason)
			},
			OnReadRemoteSupportedFeaturesComplete: func(handle uint16, features uint64) {
				fmt.Printf("classic features: handle 0x%04x 0x%016x\n", handle, features)
			},
			OnReadRemoteExtendedFeaturesComplete: func(handle uint16, pageNumber, maxPageNumber uint8, features uint64) {
				fmt.Printf("classic features page %d/%d: handle 0x%04x 0x%016x\n",
					pageNumber, maxPageNumber, handle, features)
			},
		},
		Le: acl.LeCallbacks{
			OnConnected: func(address bthost.AddressWithType, handle uint16, role bthost.Role,
				connInterval, connLatency, connTimeout uint16,
				localRPA, peerRPA bthost.Address, peerAddressType bthost.AddressType,
				canReadDiscoverableCharacteristics bool) {
				fmt.Printf("le connected: %s handle 0x%04x role %s interval %d\n",
					address, handle, role, connInterval)
			},
			OnFailed: func(address bthost.AddressWithType, handle uint16, enhanced bool, status bthost.ErrorCode) {
				fmt.Printf("le failed: %s %s\n", address, status)
			},
			OnDisconnected: func(status bthost.ErrorCode, handle uint16, reason bthost.ErrorCode) {
				fmt.Printf("le disconnected: handle 0x%04x reason %s\n", handle, reason)
			},
		},
	}
}

// hciReset is the H4 framing of HCI_Reset.
var hciReset = []byte{0x01, 0x03, 0x0c, 0x00}

func resetController(name string, rw io.ReadWriteCloser) error {
	defer rw.Close()

	if _, err := rw.Write(hciReset); err != nil {
		return err
	}

	b := make([]byte, 260)
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		n, err := rw.Read(b)
		if err != nil {
			return err
		}
		if n == 0 {
			continue
		}
		fmt.Printf("%s: event %s\n", name, hex.EncodeToString(b[:n]))
		return nil
	}
	return fmt.Errorf("%s: no response to reset", name)
}

func runUart(c *cli.Context) error {
	opts := h4.DefaultSerialOptions()
	opts.PortName = c.String("path")
	t, err := h4.NewSerial(opts)
	if err != nil {
		return err
	}
	return resetController(c.String("path"), t)
}

func runHci(c *cli.Context) error {
	uc, err := h4.NewUserChannel(c.Int("device"))
	if err != nil {
		return err
	}
	return resetController(fmt.Sprintf("hci%d", c.Int("device")), uc)
}
