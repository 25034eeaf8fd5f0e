package payload

import (
	"encoding/json"
	"reflect"
	"testing"
)

func decode(t *testing.T, raw string) Payload {
	t.Helper()
	p, err := Parse(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", raw, err)
	}
	return p
}

func TestStringAccessor(t *testing.T) {
	p := decode(t, `{"node":"pve1","vmid":101,"cpu":0.25,"template":true}`)

	if got := p.String("node", "N/A"); got != "pve1" {
		t.Errorf("String(node) = %q", got)
	}
	if got := p.String("vmid", "N/A"); got != "101" {
		t.Errorf("String(vmid) = %q, want 101", got)
	}
	if got := p.String("cpu", "N/A"); got != "0.25" {
		t.Errorf("String(cpu) = %q", got)
	}
	if got := p.String("missing", "N/A"); got != "N/A" {
		t.Errorf("String(missing) = %q, want N/A", got)
	}
}

func TestNumericAccessors(t *testing.T) {
	p := decode(t, `{"mem":8589934592,"maxmem":"34359738368","cpu":0.5,"null":null}`)

	if got := p.Int("mem", 0); got != 8589934592 {
		t.Errorf("Int(mem) = %d", got)
	}
	if got := p.Int("maxmem", 0); got != 34359738368 {
		t.Errorf("Int(maxmem) = %d, string values should parse", got)
	}
	if got := p.Int("missing", 7); got != 7 {
		t.Errorf("Int(missing) = %d, want default 7", got)
	}
	if got := p.Int("null", 7); got != 7 {
		t.Errorf("Int(null) = %d, want default 7", got)
	}
	if got := p.Float("cpu", 0); got != 0.5 {
		t.Errorf("Float(cpu) = %v", got)
	}
}

func TestBoolAccessor(t *testing.T) {
	p := decode(t, `{"template":1,"quorate":0,"ha":"1","managed":true}`)

	if !p.Bool("template", false) {
		t.Error("Bool(template) should treat 1 as true")
	}
	if p.Bool("quorate", true) {
		t.Error("Bool(quorate) should treat 0 as false")
	}
	if !p.Bool("ha", false) {
		t.Error(`Bool(ha) should treat "1" as true`)
	}
	if !p.Bool("managed", false) {
		t.Error("Bool(managed) should pass through true")
	}
	if p.Bool("missing", false) {
		t.Error("Bool(missing) should return default")
	}
}

func TestNestedAccess(t *testing.T) {
	p := decode(t, `{"memory":{"used":100,"total":200},"nodes":[{"node":"a"},{"node":"b"}]}`)

	if got := p.Map("memory").Int("used", 0); got != 100 {
		t.Errorf("Map(memory).Int(used) = %d", got)
	}
	if got := p.Map("missing").Int("used", 5); got != 5 {
		t.Errorf("Map(missing).Int(used) = %d, want default", got)
	}

	items := p.Map("nodes").Items()
	if len(items) != 2 {
		t.Fatalf("Map(nodes).Items() returned %d items", len(items))
	}
	if got := items[1].String("node", ""); got != "b" {
		t.Errorf("second node = %q", got)
	}
}

func TestItemsOnNonArray(t *testing.T) {
	p := decode(t, `{"a":1}`)
	if items := p.Items(); items != nil {
		t.Errorf("Items() on object = %v, want nil", items)
	}
}

func TestKeysSorted(t *testing.T) {
	p := decode(t, `{"net0":"x","cores":2,"hostname":"ct1"}`)
	want := []string{"cores", "hostname", "net0"}
	if got := p.Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
}

func TestScalarText(t *testing.T) {
	p := decode(t, `"UPID:pve1:0001:qmstart:"`)
	if got := p.Text(); got != "UPID:pve1:0001:qmstart:" {
		t.Errorf("Text() = %q", got)
	}
	if !Wrap(nil).IsNil() {
		t.Error("Wrap(nil).IsNil() should be true")
	}
}
