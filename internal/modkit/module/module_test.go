package module

import (
	"strings"
	"sync"
	"testing"

	phttp "umbra/internal/platform/net/http"
)

type planner interface{ Mode() string }

type lazy struct{}

func (lazy) Mode() string { return "lazy" }

type schedPorts struct {
	Planner planner
	hidden  planner
}

type stub struct {
	name  string
	ports any
}

func (s stub) MountRoutes(phttp.Router) {}
func (s stub) Ports() any               { return s.ports }
func (s stub) Name() string             { return s.name }

func TestPortsOf(t *testing.T) {
	m := stub{name: "schedule", ports: schedPorts{Planner: lazy{}}}

	// the bundle itself
	if p, ok := PortsOf[schedPorts](m); !ok || p.Planner == nil {
		t.Fatalf("bundle not returned")
	}
	// a field of the bundle
	if p, ok := PortsOf[planner](m); !ok || p.Mode() != "lazy" {
		t.Fatalf("field not found")
	}
	// unexported fields are skipped
	if _, ok := PortsOf[planner](stub{ports: schedPorts{hidden: lazy{}}}); ok {
		t.Fatalf("unexported field leaked")
	}
	if _, ok := PortsOf[planner](stub{}); ok {
		t.Fatalf("nil ports should not match")
	}
	if _, ok := PortsOf[planner](stub{ports: 42}); ok {
		t.Fatalf("non struct ports should not match")
	}
}

func TestMustPortsOf_PanicsWithModuleName(t *testing.T) {
	defer func() {
		v := recover()
		if s, _ := v.(string); !strings.Contains(s, "audit") {
			t.Fatalf("panic = %v", v)
		}
	}()
	_ = MustPortsOf[planner](stub{name: "audit", ports: struct{ Dir string }{"/tmp"}})
}

func TestRegistry(t *testing.T) {
	Reset()
	if _, ok := PortsAs[schedPorts]("schedule"); ok {
		t.Fatalf("empty registry returned ports")
	}

	Register("schedule", schedPorts{Planner: lazy{}})
	p, ok := PortsAs[schedPorts]("schedule")
	if !ok || p.Planner.Mode() != "lazy" {
		t.Fatalf("PortsAs = %+v %v", p, ok)
	}
	if _, ok := PortsAs[int]("schedule"); ok {
		t.Fatalf("wrong type should not assert")
	}

	Register("schedule", schedPorts{})
	if p, _ := PortsAs[schedPorts]("schedule"); p.Planner != nil {
		t.Fatalf("re-register should replace")
	}

	Reset()
	if _, ok := PortsAs[schedPorts]("schedule"); ok {
		t.Fatalf("Reset kept entries")
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	Reset()
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				Register("shooter", i)
			} else {
				_, _ = PortsAs[int]("shooter")
			}
		}()
	}
	wg.Wait()
	if _, ok := PortsAs[int]("shooter"); !ok {
		t.Fatalf("no writer won")
	}
}
