package renderer

// Unwind is a stack of cleanup functions run in reverse order when an
// initialisation sequence fails part way through.
type Unwind []func()

func (u *Unwind) Add(cleanup func()) {
	*u = append(*u, cleanup)
}

func (u *Unwind) Unwind() {
	for i := len(*u) - 1; i >= 0; i-- {
		(*u)[i]()
	}
	*u = (*u)[:0]
}

// Discard forgets the registered cleanups once ownership has been handed off.
func (u *Unwind) Discard() {
	*u = (*u)[:0]
}
