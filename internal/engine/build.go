package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/ir"
)

// Scene is a Group built from a definition together with its clips.
//
// Clips are keyed by path: a clip's name, prefixed by the names of the group
// clips that contain it ("panel/fade").
type Scene struct {
	Group *Group
	Clips map[string]ir.Playable
	// Paths lists clip paths in declaration order, parents before children.
	Paths []string
}

// Tween returns the leaf clip at path.
func (s *Scene) Tween(path string) (*Tween, bool) {
	t, ok := s.Clips[path].(*Tween)
	return t, ok
}

// Build validates def and turns it into a playable Scene. opts apply to the
// top-level group and are inherited by every clip (WithScheduler in
// particular); timing options come from the definition.
func Build(def *ir.Definition, opts ...Option) (*Scene, error) {
	if errs := compiler.Validate(def); len(errs) > 0 {
		joined := make([]error, len(errs))
		for i, e := range errs {
			joined[i] = e
		}
		return nil, fmt.Errorf("invalid timeline %q: %w", def.Name, errors.Join(joined...))
	}

	s := &Scene{Clips: make(map[string]ir.Playable)}
	g, err := s.build(def, def.Name, "", opts)
	if err != nil {
		return nil, err
	}
	s.Group = g
	return s, nil
}

func (s *Scene) build(def *ir.Definition, name, prefix string, opts []Option) (*Group, error) {
	g, err := NewGroup(name, append(slices.Clone(opts), []Option{
		WithStartDelay(def.StartDelay.Std()),
		WithInterpolator(Easing(def.Easing)),
	}...)...)
	if err != nil {
		return nil, err
	}
	if def.Duration != nil {
		if err := g.SetDuration(def.Duration.Std()); err != nil {
			return nil, err
		}
	}

	clips := make(map[string]ir.Playable, len(def.Clips))
	for _, c := range def.Clips {
		clipName := ir.NormalizeName(c.Name)
		path := prefix + clipName
		s.Paths = append(s.Paths, path)

		var p ir.Playable
		if c.Group != nil {
			p, err = s.build(c.Group, path, path+"/", opts)
		} else {
			p, err = NewTween(path, c.Duration.Std(), append(slices.Clone(opts), []Option{
				WithStartDelay(c.Delay.Std()),
				WithInterpolator(Easing(c.Easing)),
			}...)...)
		}
		if err != nil {
			return nil, fmt.Errorf("clip %q: %w", path, err)
		}
		clips[clipName] = p
		s.Clips[path] = p
		g.Play(p)
	}

	lookup := func(refs []string) []ir.Playable {
		out := make([]ir.Playable, len(refs))
		for i, ref := range refs {
			out[i] = clips[ir.NormalizeName(ref)]
		}
		return out
	}

	g.PlayTogether(lookup(def.Together)...)
	g.PlaySequentially(lookup(def.Sequence)...)
	for _, r := range def.Relations {
		b := g.Play(clips[ir.NormalizeName(r.Play)])
		for _, p := range lookup(r.With) {
			b.With(p)
		}
		for _, p := range lookup(r.Before) {
			b.Before(p)
		}
		for _, p := range lookup(r.After) {
			b.After(p)
		}
		if r.AfterDelay != nil {
			if _, err := b.AfterDelay(r.AfterDelay.Std()); err != nil {
				return nil, err
			}
		}
	}
	return g, nil
}
