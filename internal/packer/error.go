package packer

var (
	ErrTooLarge    = &PackError{"requested size exceeds the maximum bin size"}
	ErrInvalidSize = &PackError{"requested size must be strictly positive"}
)

type PackError struct {
	Msg string
}

func (e *PackError) Error() string {
	return e.Msg
}

func (e *PackError) Is(target error) bool {
	if targetErr, ok := target.(*PackError); ok {
		return e.Msg == targetErr.Msg
	}
	return false
}
