package coord

// rowInterleave is the hardware order in which physical tensix rows receive
// logical indices.
var rowInterleave = [...]int{0, 2, 4, 6, 8, 10, 11, 9, 7, 5, 3, 1}

// reservedInterleaveIndex names the interleave slot whose row is never
// given a logical index.
const reservedInterleaveIndex = 6

const (
	defectFieldBits = 10
	defectFieldMask = 1<<defectFieldBits - 1
)

// ReservedRow is the physical row held back from logical numbering.
func ReservedRow() int {
	return rowInterleave[reservedInterleaveIndex]
}

// DefectiveRows decodes an efuse harvesting word into a bitmask over
// physical rows. The low ten bits flag memory defects and the next ten logic
// defects; bit i of either field marks physical row i+1. The reserved row is
// always set.
func DefectiveRows(efuse uint32) uint32 {
	mem := efuse & defectFieldMask
	logic := (efuse >> defectFieldBits) & defectFieldMask
	rows := (mem | logic) << 1
	rows |= 1 << ReservedRow()
	return rows
}

// RowMap returns the logical to physical tensix row table for efuse:
// element i is the physical row that logical row i lives on.
func RowMap(efuse uint32) []int {
	bad := DefectiveRows(efuse)
	rows := make([]int, 0, len(rowInterleave))
	for i, row := range rowInterleave {
		if i == reservedInterleaveIndex || bad&(1<<row) != 0 {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// HarvestedRows lists, in interleave order, the physical rows RowMap
// leaves out (the reserved row included).
func HarvestedRows(efuse uint32) []int {
	bad := DefectiveRows(efuse)
	var rows []int
	for _, row := range rowInterleave {
		if bad&(1<<row) != 0 {
			rows = append(rows, row)
		}
	}
	return rows
}
