package watchfile

// NoHandle marks a file that is not currently registered with the
// notification backend.
const NoHandle = -1

// File is one watched file. Handle is whatever identifier the native
// notification backend returned for it, and is replaced whenever the file
// has to be re-registered (editors that save via rename delete the old
// inode).
type File struct {
	Path   string
	Handle int
}

func (f *File) Invalidate() {
	f.Handle = NoHandle
}

// Registry holds every watched file for the lifetime of the process. Events
// arrive tagged with a native handle, and the dispatch loop resolves them
// back to a File here. Mutation only happens from the dispatch goroutine,
// so no locking is needed.
type Registry struct {
	files []*File
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Add(path string) *File {
	f := &File{Path: path, Handle: NoHandle}
	r.files = append(r.files, f)
	return f
}

// Lookup finds the file registered under the given native handle. The
// sentinel handle never matches anything.
func (r *Registry) Lookup(handle int) (*File, bool) {
	if handle == NoHandle {
		return nil, false
	}
	for _, f := range r.files {
		if f.Handle == handle {
			return f, true
		}
	}
	return nil, false
}

func (r *Registry) Files() []*File {
	return r.files
}

func (r *Registry) Len() int {
	return len(r.files)
}
