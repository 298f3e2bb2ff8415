// Package indi talks to an INDI server (the XML over TCP protocol used by astronomy device
// drivers) and adapts a DSLR driver such as indi_gphoto_ccd to the shooter camera port.
//
// The client is intentionally small: it tracks switch, number and text vectors, sends new
// switch and number values and lets callers wait for a vector to reach a condition.
package indi

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	perr "umbra/internal/platform/errors"
	"umbra/internal/platform/logger"
)

// DefaultAddr is where indiserver listens unless told otherwise
const DefaultAddr = "localhost:7624"

// State is the INDI property state
type State string

// Property states
const (
	StateIdle  State = "Idle"
	StateOk    State = "Ok"
	StateBusy  State = "Busy"
	StateAlert State = "Alert"
)

// Kind is the vector type
type Kind string

// Vector kinds
const (
	KindSwitch Kind = "Switch"
	KindNumber Kind = "Number"
	KindText   Kind = "Text"
	KindLight  Kind = "Light"
)

// Element is one member of a vector. Value is the raw text ("On"/"Off" for switches).
type Element struct {
	Name  string
	Label string
	Value string
}

// On reports whether a switch element is set
func (e Element) On() bool { return strings.EqualFold(e.Value, "On") }

// Float parses a number element
func (e Element) Float() (float64, error) { return strconv.ParseFloat(e.Value, 64) }

// Vector is a device property
type Vector struct {
	Device   string
	Name     string
	Kind     Kind
	State    State
	Elements []Element
}

// Element returns the named member
func (v Vector) Element(name string) (Element, bool) {
	for _, e := range v.Elements {
		if e.Name == name {
			return e, true
		}
	}
	return Element{}, false
}

func (v Vector) clone() Vector {
	v.Elements = append([]Element(nil), v.Elements...)
	return v
}

// wire shapes shared by def*, set* and new* vectors
type xmlOne struct {
	XMLName xml.Name
	Name    string `xml:"name,attr"`
	Label   string `xml:"label,attr,omitempty"`
	Value   string `xml:",chardata"`
}

type xmlVector struct {
	XMLName xml.Name
	Device  string   `xml:"device,attr"`
	Name    string   `xml:"name,attr,omitempty"`
	State   string   `xml:"state,attr,omitempty"`
	Message string   `xml:"message,attr,omitempty"`
	Elems   []xmlOne `xml:",any"`
}

type xmlGetProperties struct {
	XMLName xml.Name `xml:"getProperties"`
	Version string   `xml:"version,attr"`
	Device  string   `xml:"device,attr,omitempty"`
}

type key struct{ device, name string }

// Client is a connection to indiserver
type Client struct {
	conn net.Conn
	log  *logger.Logger

	wmu sync.Mutex // serializes writes

	mu     sync.Mutex
	props  map[key]*Vector
	notify chan struct{}
	err    error
	done   chan struct{}
}

// Dial connects to indiserver and starts reading its stream
func Dial(ctx context.Context, addr string) (*Client, error) {
	if addr == "" {
		addr = DefaultAddr
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "indi: dial %s", addr)
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection
func NewClient(conn net.Conn) *Client {
	c := &Client{
		conn:   conn,
		log:    logger.Named("indi"),
		props:  map[key]*Vector{},
		notify: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Close ends the connection
func (c *Client) Close() error {
	err := c.conn.Close()
	<-c.done
	return err
}

// Err returns why the read loop stopped, nil while it is running
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// GetProperties asks the server to define the properties of device (all devices when empty)
func (c *Client) GetProperties(device string) error {
	return c.send(xmlGetProperties{Version: "1.7", Device: device})
}

// Vector returns a copy of a known property
func (c *Client) Vector(device, name string) (Vector, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.props[key{device, name}]
	if !ok {
		return Vector{}, false
	}
	return v.clone(), true
}

// Wait blocks until the property exists and cond accepts it. A nil cond only waits for existence.
func (c *Client) Wait(ctx context.Context, device, name string, cond func(Vector) bool) (Vector, error) {
	for {
		c.mu.Lock()
		v, ok := c.props[key{device, name}]
		var snap Vector
		if ok {
			snap = v.clone()
		}
		ch, err := c.notify, c.err
		c.mu.Unlock()

		if ok && (cond == nil || cond(snap)) {
			return snap, nil
		}
		if err != nil {
			return Vector{}, perr.Wrapf(err, perr.ErrorCodeUnavailable, "indi: waiting for %s.%s", device, name)
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return snap, perr.Wrapf(ctx.Err(), perr.CodeOf(ctx.Err()), "indi: waiting for %s.%s", device, name)
		}
	}
}

// WaitState waits until the property reaches want. Alert is reported as a device error.
func (c *Client) WaitState(ctx context.Context, device, name string, want State) (Vector, error) {
	v, err := c.Wait(ctx, device, name, func(v Vector) bool {
		return v.State == want || v.State == StateAlert
	})
	if err != nil {
		return v, err
	}
	if v.State == StateAlert && want != StateAlert {
		return v, perr.Devicef("indi: %s.%s went to alert", device, name)
	}
	return v, nil
}

// SendSwitch sets the given switches of a switch vector
func (c *Client) SendSwitch(device, name string, elems []Element) error {
	return c.sendNew("newSwitchVector", "oneSwitch", device, name, elems)
}

// SendNumber sets the given members of a number vector
func (c *Client) SendNumber(device, name string, elems []Element) error {
	return c.sendNew("newNumberVector", "oneNumber", device, name, elems)
}

// sendNew marks the local copy busy before writing so a following WaitState cannot see a stale Ok
func (c *Client) sendNew(tag, one, device, name string, elems []Element) error {
	out := xmlVector{XMLName: xml.Name{Local: tag}, Device: device, Name: name}
	for _, e := range elems {
		out.Elems = append(out.Elems, xmlOne{XMLName: xml.Name{Local: one}, Name: e.Name, Value: e.Value})
	}
	c.mu.Lock()
	if v, ok := c.props[key{device, name}]; ok {
		v.State = StateBusy
		for _, e := range elems {
			for i := range v.Elements {
				if v.Elements[i].Name == e.Name {
					v.Elements[i].Value = e.Value
				}
			}
		}
	}
	c.mu.Unlock()
	return c.send(out)
}

func (c *Client) send(v any) error {
	b, err := xml.Marshal(v)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeInvalidArgument, "indi: encode")
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if _, err := c.conn.Write(append(b, '\n')); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "indi: write")
	}
	return nil
}

func (c *Client) readLoop() {
	dec := xml.NewDecoder(c.conn)
	// drivers send latin-1 labels now and then; pass bytes through untouched
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	dec.Strict = false

	var err error
	for {
		var tok xml.Token
		tok, err = dec.Token()
		if err != nil {
			break
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		var v xmlVector
		if err = dec.DecodeElement(&v, &se); err != nil {
			break
		}
		c.apply(v)
	}

	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		err = perr.Unavailablef("indi: connection closed")
	}
	c.mu.Lock()
	c.err = err
	close(c.notify)
	c.notify = make(chan struct{})
	c.mu.Unlock()
	close(c.done)
}

func (c *Client) apply(v xmlVector) {
	tag := v.XMLName.Local
	switch {
	case tag == "message":
		c.log.Debug().Str("device", v.Device).Str("message", v.Message).Msg("indi: server message")
		return
	case tag == "delProperty":
		c.mu.Lock()
		for k := range c.props {
			if k.device == v.Device && (v.Name == "" || k.name == v.Name) {
				delete(c.props, k)
			}
		}
		c.broadcastLocked()
		c.mu.Unlock()
		return
	case strings.HasPrefix(tag, "def") && strings.HasSuffix(tag, "Vector"):
		vec := &Vector{
			Device: v.Device,
			Name:   v.Name,
			Kind:   Kind(strings.TrimSuffix(strings.TrimPrefix(tag, "def"), "Vector")),
			State:  State(v.State),
		}
		for _, e := range v.Elems {
			vec.Elements = append(vec.Elements, Element{Name: e.Name, Label: e.Label, Value: strings.TrimSpace(e.Value)})
		}
		c.mu.Lock()
		c.props[key{v.Device, v.Name}] = vec
		c.broadcastLocked()
		c.mu.Unlock()
	case strings.HasPrefix(tag, "set") && strings.HasSuffix(tag, "Vector"):
		c.mu.Lock()
		vec, ok := c.props[key{v.Device, v.Name}]
		if !ok {
			vec = &Vector{Device: v.Device, Name: v.Name, Kind: Kind(strings.TrimSuffix(strings.TrimPrefix(tag, "set"), "Vector"))}
			c.props[key{v.Device, v.Name}] = vec
		}
		if v.State != "" {
			vec.State = State(v.State)
		}
		for _, e := range v.Elems {
			val := strings.TrimSpace(e.Value)
			found := false
			for i := range vec.Elements {
				if vec.Elements[i].Name == e.Name {
					vec.Elements[i].Value = val
					found = true
				}
			}
			if !found {
				vec.Elements = append(vec.Elements, Element{Name: e.Name, Value: val})
			}
		}
		c.broadcastLocked()
		c.mu.Unlock()
	}
}

func (c *Client) broadcastLocked() {
	close(c.notify)
	c.notify = make(chan struct{})
}
