package coord

import "sort"

type core struct {
	typ    CoreType
	coords [numSpaces]XY
	has    [numSpaces]bool
}

func (c *core) set(s Space, xy XY) {
	c.coords[s] = xy
	c.has[s] = true
}

type lookupKey struct {
	space Space
	typ   CoreType
	xy    XY
}

// Translator converts coordinates for one chip. It is built once when the
// chip is opened and is read-only afterwards.
type Translator struct {
	arch    *Arch
	efuse   uint32
	rows    []int
	cores   []*core
	byNOC0  map[XY]*core
	byCoord map[lookupKey]*core
}

// NewTranslator builds the lookup tables for a chip of arch with the given
// harvesting efuse word. activeEth lists ethernet channels with a link up.
func NewTranslator(arch *Arch, efuse uint32, activeEth []int) *Translator {
	t := &Translator{
		arch:    arch,
		efuse:   efuse,
		rows:    RowMap(efuse),
		byNOC0:  make(map[XY]*core),
		byCoord: make(map[lookupKey]*core),
	}

	logicalRow := make(map[int]int, len(t.rows))
	for ly, row := range t.rows {
		logicalRow[row] = ly
	}
	harvestedSlot := make(map[int]int)
	for i, row := range HarvestedRows(efuse) {
		harvestedSlot[row] = len(t.rows) + i
	}

	origin := arch.TranslatedOrigin
	for row, y := range arch.TensixRows {
		ly, usable := logicalRow[row]
		for lx, x := range arch.TensixColumns {
			c := &core{typ: Tensix}
			c.set(NOC0, XY{X: x, Y: y})
			if usable {
				c.set(Logical, XY{X: lx, Y: ly})
				c.set(Translated, XY{X: origin + lx, Y: origin + ly})
			} else {
				c.typ = Harvested
				c.set(Translated, XY{X: origin + lx, Y: origin + harvestedSlot[row]})
			}
			t.add(c)
		}
	}

	t.addIndexed(DRAM, arch.DRAM)
	t.addIndexed(PCIe, arch.PCIe)
	t.addIndexed(ARC, arch.ARC)

	active := make(map[int]bool, len(activeEth))
	for _, ch := range activeEth {
		active[ch] = true
	}
	for ch, xy := range arch.Ethernet {
		typ := IdleEth
		if active[ch] {
			typ = ActiveEth
		}
		c := &core{typ: typ}
		c.set(NOC0, xy)
		c.set(Logical, XY{X: ch, Y: 0})
		c.set(Translated, xy)
		t.add(c)
	}
	return t
}

// addIndexed adds non-tensix cores whose logical coordinate is their index
// and whose translated coordinate equals NOC0.
func (t *Translator) addIndexed(typ CoreType, list []XY) {
	for i, xy := range list {
		c := &core{typ: typ}
		c.set(NOC0, xy)
		c.set(Logical, XY{X: i, Y: 0})
		c.set(Translated, xy)
		t.add(c)
	}
}

func (t *Translator) add(c *core) {
	noc0 := c.coords[NOC0]
	c.set(NOC1, XY{X: t.arch.GridX - 1 - noc0.X, Y: t.arch.GridY - 1 - noc0.Y})
	t.cores = append(t.cores, c)
	t.byNOC0[noc0] = c
	for s := Space(0); s < numSpaces; s++ {
		if c.has[s] {
			t.byCoord[lookupKey{space: s, typ: c.typ, xy: c.coords[s]}] = c
		}
	}
}

// Arch returns the chip architecture.
func (t *Translator) Arch() *Arch { return t.arch }

// Efuse returns the harvesting word the translator was built from.
func (t *Translator) Efuse() uint32 { return t.efuse }

// Rows returns a copy of the logical to physical row table.
func (t *Translator) Rows() []int {
	return append([]int(nil), t.rows...)
}

// Translate converts c, a core of type typ in space from, into space to.
// It reports false when no such core exists in from, or the core has no
// coordinate in to (a harvested core has no logical coordinate).
func (t *Translator) Translate(c XY, typ CoreType, from, to Space) (XY, bool) {
	k, ok := t.byCoord[lookupKey{space: from, typ: typ, xy: c}]
	if !ok || !k.has[to] {
		return XY{}, false
	}
	return k.coords[to], true
}

// CoreAt reports the type of the core at a NOC0 coordinate.
func (t *Translator) CoreAt(noc0 XY) (CoreType, bool) {
	c, ok := t.byNOC0[noc0]
	if !ok {
		return 0, false
	}
	return c.typ, true
}

// Cores lists the NOC0 coordinates of every core of typ, ordered by y then x.
func (t *Translator) Cores(typ CoreType) []XY {
	var out []XY
	for _, c := range t.cores {
		if c.typ == typ {
			out = append(out, c.coords[NOC0])
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}
