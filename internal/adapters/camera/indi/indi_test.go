package indi

import (
	"context"
	"encoding/xml"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"umbra/internal/core/clock"
	perr "umbra/internal/platform/errors"
)

const dev = "Canon DSLR"

func gphotoDefs(mode string) string {
	return strings.Join([]string{
		`<defSwitchVector device="Canon DSLR" name="CONNECTION" state="Idle" rule="OneOfMany">` +
			`<defSwitch name="CONNECT" label="Connect">Off</defSwitch><defSwitch name="DISCONNECT" label="Disconnect">On</defSwitch></defSwitchVector>`,
		`<defSwitchVector device="Canon DSLR" name="CCD_CAPTURE_TARGET" state="Idle">` +
			`<defSwitch name="CAPTURE_TARGET_RAM" label="RAM">On</defSwitch><defSwitch name="CAPTURE_TARGET_SD" label="SD Card">Off</defSwitch></defSwitchVector>`,
		`<defSwitchVector device="Canon DSLR" name="UPLOAD_MODE" state="Idle">` +
			`<defSwitch name="UPLOAD_CLIENT">Off</defSwitch><defSwitch name="UPLOAD_LOCAL">On</defSwitch><defSwitch name="UPLOAD_BOTH">Off</defSwitch></defSwitchVector>`,
		`<defSwitchVector device="Canon DSLR" name="CCD_ISO" state="Idle">` +
			`<defSwitch name="ISO0" label="Auto">On</defSwitch><defSwitch name="ISO1" label="100">Off</defSwitch>` +
			`<defSwitch name="ISO2" label="200">Off</defSwitch><defSwitch name="ISO3" label="400">Off</defSwitch>` +
			`<defSwitch name="ISO4" label="800">Off</defSwitch></defSwitchVector>`,
		`<defNumberVector device="Canon DSLR" name="CCD_EXPOSURE" state="Idle">` +
			`<defNumber name="CCD_EXPOSURE_VALUE" format="%5.2f" min="0.0001" max="3600" step="1">1</defNumber></defNumberVector>`,
		fmt.Sprintf(`<defSwitchVector device="Canon DSLR" name="autoexposuremode" state="Idle">`+
			`<defSwitch name="autoexposuremode0" label="Manual">%s</defSwitch><defSwitch name="autoexposuremode1" label="Bulb">%s</defSwitch></defSwitchVector>`,
			onOff(mode == "Manual"), onOff(mode == "Bulb")),
	}, "\n")
}

func onOff(b bool) string {
	if b {
		return "On"
	}
	return "Off"
}

// fake is a scripted indiserver on the other end of a pipe
type fake struct {
	conn     net.Conn
	defs     string
	finalExp State
	got      chan xmlVector
}

func newFake(t *testing.T, defs string, finalExp State) (*Client, *fake) {
	t.Helper()
	srv, cli := net.Pipe()
	f := &fake{conn: srv, defs: defs, finalExp: finalExp, got: make(chan xmlVector, 64)}
	go f.serve()
	c := NewClient(cli)
	t.Cleanup(func() {
		_ = c.Close()
		_ = srv.Close()
	})
	return c, f
}

func (f *fake) serve() {
	dec := xml.NewDecoder(f.conn)
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		var v xmlVector
		if err := dec.DecodeElement(&v, &se); err != nil {
			return
		}
		switch v.XMLName.Local {
		case "getProperties":
			fmt.Fprint(f.conn, f.defs)
		case "newSwitchVector":
			f.got <- v
			fmt.Fprintf(f.conn, `<setSwitchVector device=%q name=%q state="Ok">%s</setSwitchVector>`, v.Device, v.Name, ones(v, "oneSwitch"))
		case "newNumberVector":
			f.got <- v
			fmt.Fprintf(f.conn, `<setNumberVector device=%q name=%q state="Busy">%s</setNumberVector>`, v.Device, v.Name, ones(v, "oneNumber"))
			fmt.Fprintf(f.conn, `<message device=%q message="exposure done"/>`, v.Device)
			fmt.Fprintf(f.conn, `<setNumberVector device=%q name=%q state=%q><oneNumber name="CCD_EXPOSURE_VALUE">0</oneNumber></setNumberVector>`,
				v.Device, v.Name, string(f.finalExp))
		}
	}
}

func ones(v xmlVector, tag string) string {
	var b strings.Builder
	for _, e := range v.Elems {
		fmt.Fprintf(&b, `<%s name=%q>%s</%s>`, tag, e.Name, e.Value, tag)
	}
	return b.String()
}

func (f *fake) next(t *testing.T) xmlVector {
	t.Helper()
	select {
	case v := <-f.got:
		return v
	case <-time.After(2 * time.Second):
		t.Fatalf("server received nothing")
		return xmlVector{}
	}
}

func onSwitch(v xmlVector) string {
	for _, e := range v.Elems {
		if strings.TrimSpace(e.Value) == "On" {
			return e.Name
		}
	}
	return ""
}

func connect(t *testing.T, mode string, finalExp State) (*Camera, *fake, *clock.Manual) {
	t.Helper()
	c, f := newFake(t, gphotoDefs(mode), finalExp)
	clk := clock.NewManual(time.Date(2026, 8, 12, 17, 0, 0, 0, time.UTC))
	cam, err := Connect(context.Background(), c, Options{Device: dev, Sleeper: clk, Setup: 2 * time.Second, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	return cam, f, clk
}

func TestConnectConfiguresDevice(t *testing.T) {
	_, f, _ := connect(t, "Manual", StateOk)

	want := []struct{ name, on string }{
		{"CONNECTION", "CONNECT"},
		{"CCD_CAPTURE_TARGET", "CAPTURE_TARGET_SD"},
		{"UPLOAD_MODE", "UPLOAD_CLIENT"},
	}
	for _, w := range want {
		v := f.next(t)
		if v.Device != dev || v.Name != w.name || onSwitch(v) != w.on {
			t.Fatalf("got %s %s=%s, want %s=%s", v.Device, v.Name, onSwitch(v), w.name, w.on)
		}
	}
}

func TestConnectRejectsBulb(t *testing.T) {
	c, _ := newFake(t, gphotoDefs("Bulb"), StateOk)
	_, err := Connect(context.Background(), c, Options{Device: dev, Setup: 2 * time.Second})
	if !perr.IsCode(err, perr.ErrorCodeDevice) {
		t.Fatalf("err = %v, want device error", err)
	}
}

func TestConnectNeedsDevice(t *testing.T) {
	c, _ := newFake(t, "", StateOk)
	if _, err := Connect(context.Background(), c, Options{}); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("err = %v", err)
	}
}

func TestSetISOPicksNearestLabel(t *testing.T) {
	cam, f, _ := connect(t, "Manual", StateOk)
	for range 3 {
		f.next(t)
	}
	if err := cam.SetISO(context.Background(), 350); err != nil {
		t.Fatalf("SetISO: %v", err)
	}
	v := f.next(t)
	if v.Name != "CCD_ISO" || onSwitch(v) != "ISO3" {
		t.Fatalf("sent %s=%s, want CCD_ISO=ISO3", v.Name, onSwitch(v))
	}
	if len(v.Elems) != 5 {
		t.Fatalf("one of many must send every switch, got %d", len(v.Elems))
	}
}

func TestNearestISO(t *testing.T) {
	elems := []Element{{Name: "ISO0", Label: "Auto"}, {Name: "ISO1", Label: "100"}, {Name: "ISO2", Label: "1600"}}
	if got := NearestISO(elems, 90); got != 1 {
		t.Fatalf("NearestISO(90) = %d", got)
	}
	if got := NearestISO(elems, 5000); got != 2 {
		t.Fatalf("NearestISO(5000) = %d", got)
	}
	if got := NearestISO(elems[:1], 100); got != -1 {
		t.Fatalf("no numeric label should give -1, got %d", got)
	}
}

func TestCaptureWaitsForOk(t *testing.T) {
	cam, f, clk := connect(t, "Manual", StateOk)
	for range 3 {
		f.next(t)
	}
	start := clk.Now()
	ctx := context.Background()
	if err := cam.SetExposure(ctx, 0.5); err != nil {
		t.Fatalf("SetExposure: %v", err)
	}
	if err := cam.CaptureImage(ctx); err != nil {
		t.Fatalf("CaptureImage: %v", err)
	}
	v := f.next(t)
	if v.Name != "CCD_EXPOSURE" || len(v.Elems) != 1 || v.Elems[0].Name != "CCD_EXPOSURE_VALUE" || strings.TrimSpace(v.Elems[0].Value) != "0.5" {
		t.Fatalf("unexpected exposure command %+v", v)
	}
	if got := clk.Now().Sub(start); got != 500*time.Millisecond {
		t.Fatalf("slept %v for the exposure", got)
	}
	if vec, _ := cam.cl.Vector(dev, "CCD_EXPOSURE"); vec.State != StateOk {
		t.Fatalf("state = %s", vec.State)
	}
}

func TestCaptureAlertIsDeviceError(t *testing.T) {
	cam, _, _ := connect(t, "Manual", StateAlert)
	ctx := context.Background()
	_ = cam.SetExposure(ctx, 0.01)
	if err := cam.CaptureImage(ctx); !perr.IsCode(err, perr.ErrorCodeDevice) {
		t.Fatalf("err = %v, want device error", err)
	}
}

func TestCaptureBeforeExposure(t *testing.T) {
	cam, _, _ := connect(t, "Manual", StateOk)
	if err := cam.CaptureImage(context.Background()); !perr.IsCode(err, perr.ErrorCodeDevice) {
		t.Fatalf("err = %v", err)
	}
	if err := cam.SetExposure(context.Background(), 0); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("err = %v", err)
	}
}

func TestWaitAfterServerHangup(t *testing.T) {
	c, f := newFake(t, "", StateOk)
	_ = f.conn.Close()
	_, err := c.Wait(context.Background(), dev, "CONNECTION", nil)
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("err = %v, want unavailable", err)
	}
	if c.Err() == nil {
		t.Fatalf("Err() should report the closed stream")
	}
}

func TestDelPropertyForgetsVector(t *testing.T) {
	srv, cli := net.Pipe()
	c := NewClient(cli)
	t.Cleanup(func() {
		_ = c.Close()
		_ = srv.Close()
	})
	go fmt.Fprint(srv, gphotoDefs("Manual")+`<delProperty device="Canon DSLR" name="CCD_ISO"/>`+
		`<defTextVector device="Canon DSLR" name="DONE"><defText name="X">y</defText></defTextVector>`)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := c.Wait(ctx, dev, "DONE", nil); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if _, ok := c.Vector(dev, "CCD_ISO"); ok {
		t.Fatalf("deleted vector still known")
	}
	v, ok := c.Vector(dev, "CCD_EXPOSURE")
	if !ok || v.Kind != KindNumber {
		t.Fatalf("exposure vector = %+v", v)
	}
	if e, _ := v.Element("CCD_EXPOSURE_VALUE"); e.Value != "1" {
		t.Fatalf("value = %q", e.Value)
	}
}
