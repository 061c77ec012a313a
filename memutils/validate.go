package memutils

// Validatable is used by the DebugValidate method to allow it to act upon
// all types with a Validate method
type Validatable interface {
	Validate() error
}

// FreedFillPattern is the byte written across the full range of a slot when it is freed, so that
// use-after-free reads are easy to recognize while debugging
const FreedFillPattern byte = '#'

// FillFreed overwrites data with FreedFillPattern
func FillFreed(data []byte) {
	for i := range data {
		data[i] = FreedFillPattern
	}
}

// IsFilledFreed returns true if every byte of data is FreedFillPattern
func IsFilledFreed(data []byte) bool {
	for _, b := range data {
		if b != FreedFillPattern {
			return false
		}
	}

	return true
}
