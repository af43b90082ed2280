// Package prompts holds the instructions sent to the generative and
// judging collaborator. Defaults can be overridden from a YAML file.
package prompts

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

type Prompt struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// File is the YAML layout of a prompt override file.
type File struct {
	Synthesis     Prompt `yaml:"synthesis"`
	Planning      Prompt `yaml:"planning"`
	Hallucination Prompt `yaml:"hallucination"`
	Helpfulness   Prompt `yaml:"helpfulness"`
}

type SynthesisData struct {
	Context string
	Count   int
}

type PlanningData struct {
	Template string
	Question string
}

type JudgeData struct {
	Question  string
	Reference string
	Answer    string
}

// Template is a compiled system/user prompt pair.
type Template struct {
	name   string
	system *template.Template
	user   *template.Template
}

func compile(name string, p Prompt) (*Template, error) {
	system, err := template.New(name + ".system").Option("missingkey=error").Parse(p.System)
	if err != nil {
		return nil, fmt.Errorf("parse %s system prompt: %w", name, err)
	}
	user, err := template.New(name + ".user").Option("missingkey=error").Parse(p.User)
	if err != nil {
		return nil, fmt.Errorf("parse %s user prompt: %w", name, err)
	}
	return &Template{name: name, system: system, user: user}, nil
}

func (t *Template) Name() string { return t.name }

func (t *Template) Render(data any) (system, user string, err error) {
	var sb, ub bytes.Buffer
	if err := t.system.Execute(&sb, data); err != nil {
		return "", "", fmt.Errorf("render %s system prompt: %w", t.name, err)
	}
	if err := t.user.Execute(&ub, data); err != nil {
		return "", "", fmt.Errorf("render %s user prompt: %w", t.name, err)
	}
	return sb.String(), ub.String(), nil
}

type Set struct {
	Synthesis     *Template
	Planning      *Template
	Hallucination *Template
	Helpfulness   *Template
}

func Default() *Set {
	set, err := build(defaults)
	if err != nil {
		panic(err)
	}
	return set
}

// Load overlays the prompts in path onto the defaults. An empty path
// returns the defaults.
func Load(path string) (*Set, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompts file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Set, error) {
	var override File
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse prompts file: %w", err)
	}

	merged := defaults
	merge(&merged.Synthesis, override.Synthesis)
	merge(&merged.Planning, override.Planning)
	merge(&merged.Hallucination, override.Hallucination)
	merge(&merged.Helpfulness, override.Helpfulness)

	return build(merged)
}

func merge(dst *Prompt, src Prompt) {
	if src.System != "" {
		dst.System = src.System
	}
	if src.User != "" {
		dst.User = src.User
	}
}

func build(f File) (*Set, error) {
	var (
		set Set
		err error
	)
	if set.Synthesis, err = compile("synthesis", f.Synthesis); err != nil {
		return nil, err
	}
	if set.Planning, err = compile("planning", f.Planning); err != nil {
		return nil, err
	}
	if set.Hallucination, err = compile("hallucination", f.Hallucination); err != nil {
		return nil, err
	}
	if set.Helpfulness, err = compile("helpfulness", f.Helpfulness); err != nil {
		return nil, err
	}
	return &set, nil
}
