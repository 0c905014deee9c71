package filters

import "github.com/linuxmatters/afchain/internal/af"

// Builtins constructs the static filter catalogue (spec.md §4.A): the
// small set of filters this engine implements natively, plus the
// auto-inserted converter and the lavfi bridge that routes everything
// else into FFmpeg's own filter library.
func Builtins() *af.Registry {
	r := af.NewRegistry()
	r.Register(Format())
	r.Register(Volume())
	r.Register(Pan())
	r.Register(Scaletempo())
	r.Register(Resample())
	r.Register(Bridge())
	return r
}
