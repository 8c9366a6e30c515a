package atlas

var (
	ErrTooLarge   = &AllocError{"requested size exceeds the maximum atlas size"}
	ErrReleased   = &AllocError{"allocation was already released"}
	ErrReentrant  = &AllocError{"allocate or release called while migrating allocations"}
	ErrClosed     = &AllocError{"render context is closed"}
	ErrBadConfig  = &AllocError{"invalid render context config"}
	ErrForeignCtx = &AllocError{"allocation belongs to another render context"}
)

type AllocError struct {
	Msg string
}

func (e *AllocError) Error() string {
	return e.Msg
}

func (e *AllocError) Is(target error) bool {
	if targetErr, ok := target.(*AllocError); ok {
		return e.Msg == targetErr.Msg
	}
	return false
}
