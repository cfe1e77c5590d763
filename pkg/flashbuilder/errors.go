package flashbuilder

import "fmt"

// AddressBeforeFlashStartError is returned by AddData when address lies
// before the builder's flash_start.
type AddressBeforeFlashStartError struct{ Address uint32 }

func (e *AddressBeforeFlashStartError) Error() string {
	return fmt.Sprintf("flashbuilder: address 0x%X is before flash start", e.Address)
}

// DataOverlapError is returned by AddData when the new range overlaps a
// previously added one.
type DataOverlapError struct{ Address uint32 }

func (e *DataOverlapError) Error() string {
	return fmt.Sprintf("flashbuilder: data overlap at address 0x%X", e.Address)
}

// InvalidFlashAddressError is returned by Program when an operation's
// address does not fall in any page the bound driver's region covers.
type InvalidFlashAddressError struct{ Address uint32 }

func (e *InvalidFlashAddressError) Error() string {
	return fmt.Sprintf("flashbuilder: invalid flash address 0x%X", e.Address)
}

// TooManyErrorsError aborts a commit once more than MaxErrors page
// operations have failed.
type TooManyErrorsError struct{ Count int }

func (e *TooManyErrorsError) Error() string {
	return fmt.Sprintf("flashbuilder: too many page programming errors (%d)", e.Count)
}
