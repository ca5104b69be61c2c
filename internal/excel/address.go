package excel

import (
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
)

var ErrInvalidAddress = errors.New("invalid cell address")

// Address is a zero-based cell position.
type Address struct {
	Row int
	Col int
}

// ParseAddress parses an A1-style reference such as "E14". Only upper-case
// column letters are accepted and the row must be at least 1.
func ParseAddress(s string) (Address, error) {
	i := 0
	for i < len(s) && s[i] >= 'A' && s[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(s) {
		return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
	}

	col := columnToIndex(s[:i])
	row := 0
	for _, c := range s[i:] {
		if c < '0' || c > '9' {
			return Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, s)
		}
		row = row*10 + int(c-'0')
		if row > excelize.TotalRows {
			return Address{}, fmt.Errorf("%w: row of %q out of range", ErrInvalidAddress, s)
		}
	}
	if row < 1 || col >= excelize.MaxColumns {
		return Address{}, fmt.Errorf("%w: %q out of range", ErrInvalidAddress, s)
	}
	return Address{Row: row - 1, Col: col}, nil
}

// Offset returns the address n rows below a.
func (a Address) Offset(n int) Address {
	return Address{Row: a.Row + n, Col: a.Col}
}

func (a Address) String() string {
	name, err := excelize.CoordinatesToCellName(a.Col+1, a.Row+1)
	if err != nil {
		return fmt.Sprintf("R%dC%d", a.Row+1, a.Col+1)
	}
	return name
}

// columnToIndex converts column letters to a zero-based index.
func columnToIndex(column string) int {
	result := 0
	for _, char := range column {
		result = result*26 + int(char-'A'+1)
		if result > excelize.MaxColumns {
			return excelize.MaxColumns
		}
	}
	return result - 1
}
