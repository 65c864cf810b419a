package align

import (
	"github.com/cockroachdb/errors"
)

// ErrNotPowerOfTwo is returned from CheckPow2 if the number being tested is not a power of two
var ErrNotPowerOfTwo = errors.New("number must be a power of two")

type Number interface {
	~int | ~uint | ~uint64
}

func CheckPow2[T Number](number T, name string) error {
	if number == 0 || number&(number-1) != 0 {
		return errors.Wrapf(ErrNotPowerOfTwo, "%s is %d", name, number)
	}
	return nil
}

// Up rounds value up to the next multiple of alignment, which must be a power of two
func Up(value int, alignment uint) int {
	if alignment <= 1 {
		return value
	}
	return (value + int(alignment) - 1) & int(^(alignment - 1))
}
