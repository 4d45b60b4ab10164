package params

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"text/template/parse"
)

var (
	ErrForbiddenAction = errors.New("template uses a forbidden action")
	ErrExcessiveDepth  = errors.New("template nesting exceeds maximum depth")
)

// maxDepth bounds if/range/with nesting in parameter templates.
const maxDepth = 10

// allowedFuncs are the identifiers a parameter template may call.
var allowedFuncs = map[string]bool{
	"get": true, "default": true, "json": true,
	"print": true, "printf": true, "println": true, "urlquery": true,
	"len": true, "index": true, "slice": true,
	"eq": true, "ne": true, "lt": true, "le": true, "gt": true, "ge": true,
	"and": true, "or": true, "not": true,
}

// Check parses every template once and rejects unknown functions, nested
// template definitions and excessive nesting. It reports the first offending
// parameter in key order.
func (t Templates) Check() error {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := checkValue(k, t[k]); err != nil {
			return err
		}
	}
	return nil
}

func checkValue(name string, v any) error {
	switch val := v.(type) {
	case string:
		return checkString(name, val)
	case []any:
		for i, e := range val {
			if err := checkValue(fmt.Sprintf("%s[%d]", name, i), e); err != nil {
				return err
			}
		}
	case map[string]any:
		for k, e := range val {
			if err := checkValue(name+"."+k, e); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkString(name, s string) error {
	if !strings.Contains(s, "{{") {
		return nil
	}
	tpl, err := template.New(name).Funcs(funcMap(nil)).Parse(s)
	if err != nil {
		return fmt.Errorf("parameter %s: %w", name, err)
	}
	if len(tpl.Templates()) > 1 {
		return fmt.Errorf("parameter %s: %w: define", name, ErrForbiddenAction)
	}
	if tpl.Tree == nil || tpl.Tree.Root == nil {
		return nil
	}
	if err := checkNode(tpl.Tree.Root, 0); err != nil {
		return fmt.Errorf("parameter %s: %w", name, err)
	}
	return nil
}

func checkNode(node parse.Node, depth int) error {
	if depth > maxDepth {
		return ErrExcessiveDepth
	}
	switch n := node.(type) {
	case *parse.ListNode:
		if n == nil {
			return nil
		}
		for _, c := range n.Nodes {
			if err := checkNode(c, depth); err != nil {
				return err
			}
		}
	case *parse.ActionNode:
		return checkPipe(n.Pipe, depth)
	case *parse.IfNode:
		return checkBranch(&n.BranchNode, depth)
	case *parse.RangeNode:
		return checkBranch(&n.BranchNode, depth)
	case *parse.WithNode:
		return checkBranch(&n.BranchNode, depth)
	case *parse.TemplateNode:
		return fmt.Errorf("%w: template %q", ErrForbiddenAction, n.Name)
	}
	return nil
}

func checkBranch(b *parse.BranchNode, depth int) error {
	if err := checkPipe(b.Pipe, depth+1); err != nil {
		return err
	}
	if err := checkNode(b.List, depth+1); err != nil {
		return err
	}
	if b.ElseList != nil {
		return checkNode(b.ElseList, depth+1)
	}
	return nil
}

func checkPipe(p *parse.PipeNode, depth int) error {
	if p == nil {
		return nil
	}
	for _, cmd := range p.Cmds {
		for _, arg := range cmd.Args {
			switch a := arg.(type) {
			case *parse.IdentifierNode:
				if !allowedFuncs[a.Ident] {
					return fmt.Errorf("%w: function %q", ErrForbiddenAction, a.Ident)
				}
			case *parse.PipeNode:
				if err := checkPipe(a, depth+1); err != nil {
					return err
				}
			case *parse.ChainNode:
				if inner, ok := a.Node.(*parse.PipeNode); ok {
					if err := checkPipe(inner, depth+1); err != nil {
						return err
					}
				}
			}
		}
	}
	return nil
}
