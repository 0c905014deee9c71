package af

// fakeReg builds a registry with a handful of synthetic filters
// exercising negotiation without any cgo dependency: "identity" passes
// any config through unchanged; "wantStereo" only accepts stereo input
// and asks for it otherwise; a fake AutoResamplerName stands in for the
// real lavrresample (normally backed by FFmpeg) and actually performs
// the relabeling its test doubles claim, so round-trip assertions on
// frame data stay meaningful.
func fakeReg() *Registry {
	r := NewRegistry()

	r.Register(&Descriptor{
		Name:       "identity",
		NewPrivate: func() any { return nil },
		Factory: func() Callbacks {
			return Callbacks{
				Control: func(f *FilterInstance, cmd ControlCommand, arg any) Result {
					if cmd != CmdReinit {
						return ResultUnknown
					}
					return ResultOK
				},
				FilterFrame: func(f *FilterInstance, frame *Frame) error {
					if frame == nil {
						return nil
					}
					out := *frame
					out.Config = f.FmtOut
					f.AddOutputFrame(&out)
					return nil
				},
			}
		},
	})

	r.Register(&Descriptor{
		Name:       "wantStereo",
		NewPrivate: func() any { return nil },
		Factory: func() Callbacks {
			return Callbacks{
				Control: func(f *FilterInstance, cmd ControlCommand, arg any) Result {
					if cmd != CmdReinit {
						return ResultUnknown
					}
					in := arg.(*AudioConfig)
					if in.Channels.NumChannels() == 2 {
						return ResultOK
					}
					in.Channels = Stereo
					return ResultFalse
				},
				FilterFrame: func(f *FilterInstance, frame *Frame) error {
					if frame == nil {
						return nil
					}
					out := *frame
					out.Config = f.FmtOut
					f.AddOutputFrame(&out)
					return nil
				},
			}
		},
	})

	r.Register(&Descriptor{
		Name: AutoResamplerName,
		NewPrivate: func() any { return &fakeResamplePriv{} },
		Factory: func() Callbacks {
			return Callbacks{
				Control: func(f *FilterInstance, cmd ControlCommand, arg any) Result {
					if cmd != CmdReinit {
						return ResultUnknown
					}
					in := arg.(*AudioConfig)
					p := f.Priv.(*fakeResamplePriv)
					want := p.target
					want.CopyUnsetFieldsFrom(*in)
					p.target = want
					*in = want
					return ResultOK
				},
				FilterFrame: func(f *FilterInstance, frame *Frame) error {
					if frame == nil {
						return nil
					}
					out := *frame
					out.Config = f.FmtOut
					f.AddOutputFrame(&out)
					return nil
				},
			}
		},
	})

	r.Register(&Descriptor{
		Name:       "pcmOnly",
		NewPrivate: func() any { return nil },
		Factory: func() Callbacks {
			return Callbacks{
				Control: func(f *FilterInstance, cmd ControlCommand, arg any) Result {
					if cmd != CmdReinit {
						return ResultUnknown
					}
					in := arg.(*AudioConfig)
					if in.Format.IsSPDIF() {
						in.Format = FormatFloat
						return ResultFalse
					}
					return ResultOK
				},
				FilterFrame: func(f *FilterInstance, frame *Frame) error {
					if frame == nil {
						return nil
					}
					out := *frame
					out.Config = f.FmtOut
					f.AddOutputFrame(&out)
					return nil
				},
			}
		},
	})

	r.Register(&Descriptor{
		Name:       "refuse",
		NewPrivate: func() any { return nil },
		Factory: func() Callbacks {
			return Callbacks{
				Control: func(f *FilterInstance, cmd ControlCommand, arg any) Result {
					if cmd != CmdReinit {
						return ResultUnknown
					}
					return ResultError
				},
			}
		},
	})

	return r
}

type fakeResamplePriv struct {
	target AudioConfig
}

func (p *fakeResamplePriv) SetTarget(cfg AudioConfig) { p.target = cfg }
