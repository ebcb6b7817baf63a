package domain

import "fmt"

// Direction is a D8 flow-direction code. Each valid code names the neighbour
// a cell drains to, using the ESRI/pyflwdir power-of-two encoding.
type Direction uint8

const (
	DirPit    Direction = 0 // sink; the cell is an outlet
	DirE      Direction = 1
	DirSE     Direction = 2
	DirS      Direction = 4
	DirSW     Direction = 8
	DirW      Direction = 16
	DirNW     Direction = 32
	DirN      Direction = 64
	DirNE     Direction = 128
	DirNoData Direction = 247
)

// Directions lists the eight pointing codes in clockwise order starting east.
var Directions = [8]Direction{DirE, DirSE, DirS, DirSW, DirW, DirNW, DirN, DirNE}

var offsets = map[Direction][2]int{
	DirE:  {0, 1},
	DirSE: {1, 1},
	DirS:  {1, 0},
	DirSW: {1, -1},
	DirW:  {0, -1},
	DirNW: {-1, -1},
	DirN:  {-1, 0},
	DirNE: {-1, 1},
}

// Offset returns the row and column step of a pointing code.
// ok is false for pits, no-data and malformed codes.
func (d Direction) Offset() (dr, dc int, ok bool) {
	o, ok := offsets[d]
	return o[0], o[1], ok
}

// Opposite returns the code pointing back along d.
func (d Direction) Opposite() Direction {
	switch d {
	case DirE:
		return DirW
	case DirSE:
		return DirNW
	case DirS:
		return DirN
	case DirSW:
		return DirNE
	case DirW:
		return DirE
	case DirNW:
		return DirSE
	case DirN:
		return DirS
	case DirNE:
		return DirSW
	}
	return d
}

func (d Direction) IsPit() bool    { return d == DirPit }
func (d Direction) IsNoData() bool { return d == DirNoData }

// Valid reports whether d is one of the ten codes a FlowGrid may hold.
func (d Direction) Valid() bool {
	if d == DirPit || d == DirNoData {
		return true
	}
	_, ok := offsets[d]
	return ok
}

func (d Direction) String() string {
	switch d {
	case DirPit:
		return "pit"
	case DirNoData:
		return "nodata"
	case DirE:
		return "E"
	case DirSE:
		return "SE"
	case DirS:
		return "S"
	case DirSW:
		return "SW"
	case DirW:
		return "W"
	case DirNW:
		return "NW"
	case DirN:
		return "N"
	case DirNE:
		return "NE"
	}
	return fmt.Sprintf("invalid(%d)", uint8(d))
}
