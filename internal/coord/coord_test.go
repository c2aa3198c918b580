package coord

import (
	"reflect"
	"testing"
)

func TestRowMapNoHarvesting(t *testing.T) {
	got := RowMap(0)
	want := []int{0, 2, 4, 6, 8, 10, 9, 7, 5, 3, 1}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("RowMap(0) = %v, want %v", got, want)
	}
	if ReservedRow() != 11 {
		t.Errorf("ReservedRow() = %d, want 11", ReservedRow())
	}
}

func TestRowMapHarvesting(t *testing.T) {
	tests := []struct {
		name  string
		efuse uint32
		want  []int
	}{
		{"memory defect bit 0", 1 << 0, []int{0, 2, 4, 6, 8, 10, 9, 7, 5, 3}},
		{"logic defect bit 2", 1 << 12, []int{0, 2, 4, 6, 8, 10, 9, 7, 5, 1}},
		{"same row in both fields", 1<<4 | 1<<14, []int{0, 2, 4, 6, 8, 10, 9, 7, 3, 1}},
		{"two rows", 1<<1 | 1<<19, []int{0, 4, 6, 8, 9, 7, 5, 3, 1}},
		{"bits above the fields ignored", 1 << 25, []int{0, 2, 4, 6, 8, 10, 9, 7, 5, 3, 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := RowMap(tc.efuse); !reflect.DeepEqual(got, tc.want) {
				t.Errorf("RowMap(%#x) = %v, want %v", tc.efuse, got, tc.want)
			}
		})
	}
}

func TestReservedRowNeverAssigned(t *testing.T) {
	for _, efuse := range []uint32{0, 1, 0x3ff, 0xffc00, 0xfffff, 0xffffffff, 0x155} {
		if DefectiveRows(efuse)&(1<<ReservedRow()) == 0 {
			t.Errorf("efuse %#x: reserved row not flagged", efuse)
		}
		for _, row := range RowMap(efuse) {
			if row == ReservedRow() {
				t.Errorf("efuse %#x: reserved row assigned a logical index", efuse)
			}
		}
		if n := len(RowMap(efuse)) + len(HarvestedRows(efuse)); n != len(rowInterleave) {
			t.Errorf("efuse %#x: %d rows accounted for, want %d", efuse, n, len(rowInterleave))
		}
	}
}

func TestTranslateTensix(t *testing.T) {
	tr := NewTranslator(WormholeB0, 0, nil)

	tests := []struct {
		name     string
		in       XY
		typ      CoreType
		from, to Space
		want     XY
	}{
		{"noc0 to logical", XY{1, 1}, Tensix, NOC0, Logical, XY{0, 0}},
		{"logical to noc0 interleaved", XY{0, 6}, Tensix, Logical, NOC0, XY{1, 11}},
		{"logical to noc0 last row", XY{7, 10}, Tensix, Logical, NOC0, XY{9, 2}},
		{"noc0 to noc1", XY{1, 1}, Tensix, NOC0, NOC1, XY{8, 12}},
		{"noc1 to noc0", XY{8, 12}, Tensix, NOC1, NOC0, XY{1, 1}},
		{"logical to translated", XY{3, 4}, Tensix, Logical, Translated, XY{21, 22}},
		{"reserved row translated", XY{1, 13}, Harvested, NOC0, Translated, XY{18, 29}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := tr.Translate(tc.in, tc.typ, tc.from, tc.to)
			if !ok {
				t.Fatalf("Translate(%v) reported absent", tc.in)
			}
			if got != tc.want {
				t.Errorf("Translate(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestTranslateAbsent(t *testing.T) {
	tr := NewTranslator(WormholeB0, 1, []int{0})

	if _, ok := tr.Translate(XY{1, 13}, Tensix, NOC0, Logical); ok {
		t.Errorf("reserved row translated as tensix")
	}
	// efuse bit 0 harvests physical row 1, NOC0 y=2.
	if typ, _ := tr.CoreAt(XY{1, 2}); typ != Harvested {
		t.Errorf("CoreAt(1-2) = %v, want harvested", typ)
	}
	if _, ok := tr.Translate(XY{1, 2}, Harvested, NOC0, Logical); ok {
		t.Errorf("harvested core has a logical coordinate")
	}
	if _, ok := tr.Translate(XY{0, 10}, Tensix, Logical, NOC0); ok {
		t.Errorf("logical row past the usable rows translated")
	}
	if _, ok := tr.Translate(XY{0, 0}, Tensix, NOC0, Logical); ok {
		t.Errorf("DRAM core translated as tensix")
	}
	if _, ok := tr.Translate(XY{2, 0}, ActiveEth, NOC0, Logical); ok {
		t.Errorf("idle ethernet channel translated as active")
	}
	if got, ok := tr.Translate(XY{1, 0}, ActiveEth, NOC0, Logical); !ok || got != (XY{0, 0}) {
		t.Errorf("active ethernet channel 0 = %v, %v", got, ok)
	}
}

func TestTranslateRoundTripAllSpaces(t *testing.T) {
	tr := NewTranslator(WormholeB0, 0x2a, []int{1, 3})
	for _, c := range tr.cores {
		for from := Space(0); from < numSpaces; from++ {
			if !c.has[from] {
				continue
			}
			got, ok := tr.Translate(c.coords[from], c.typ, from, NOC0)
			if !ok || got != c.coords[NOC0] {
				t.Errorf("%v %v in %v: back to noc0 = %v, %v", c.typ, c.coords[from], from, got, ok)
			}
		}
	}
}

func TestNonTensixLogical(t *testing.T) {
	tr := NewTranslator(WormholeB0, 0, nil)
	if got, ok := tr.Translate(XY{3, 0}, DRAM, Logical, NOC0); !ok || got != (XY{5, 4}) {
		t.Errorf("dram 3 = %v, %v; want 5-4", got, ok)
	}
	if got, ok := tr.Translate(XY{0, 2}, PCIe, NOC0, Translated); !ok || got != (XY{0, 2}) {
		t.Errorf("pcie translated = %v, %v", got, ok)
	}
	if n := len(tr.Cores(Tensix)); n != 11*len(WormholeB0.TensixColumns) {
		t.Errorf("%d tensix cores, want %d", n, 11*len(WormholeB0.TensixColumns))
	}
}

func TestParseNames(t *testing.T) {
	if s, err := ParseSpace("raw"); err != nil || s != NOC0 {
		t.Errorf("ParseSpace(raw) = %v, %v", s, err)
	}
	if _, err := ParseSpace("virtual"); err == nil {
		t.Errorf("ParseSpace(virtual) accepted")
	}
	if ct, err := ParseCoreType("IDLE_ETH"); err != nil || ct != IdleEth {
		t.Errorf("ParseCoreType(IDLE_ETH) = %v, %v", ct, err)
	}
	if _, err := ParseCoreType("router"); err == nil {
		t.Errorf("ParseCoreType(router) accepted")
	}
}
