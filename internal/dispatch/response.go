package dispatch

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/hejijunhao/scalr/internal/action"
	"github.com/hejijunhao/scalr/internal/model"
)

// Response is a parsed API response.
type Response struct {
	action action.Descriptor
	root   *node
	items  []map[string]string
	logs   []model.LogEntry
}

// Action returns the symbolic name of the action that produced the response.
func (r *Response) Action() action.Name { return r.action.Name }

// TransactionID returns the service-assigned transaction ID, if any.
func (r *Response) TransactionID() string {
	v, _ := r.Value("TransactionID")
	return v
}

// Value returns a scalar top-level field, e.g. "BundleTaskID" for server_image_create.
func (r *Response) Value(name string) (string, bool) {
	c := r.root.child(name)
	if c == nil || len(c.children) > 0 {
		return "", false
	}
	return c.text, true
}

// Items returns the <Item> elements of the action's result set as flat field maps.
// Nested elements are not included.
func (r *Response) Items() []map[string]string {
	out := make([]map[string]string, len(r.items))
	for i, item := range r.items {
		out[i] = maps.Clone(item)
	}
	return out
}

// Logs returns the parsed log entries of a log action, in response order.
func (r *Response) Logs() []model.LogEntry {
	return slices.Clone(r.logs)
}

func parseResponse(desc action.Descriptor, data []byte) (*Response, error) {
	root, err := parseXML(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedResponse, desc.Remote, err)
	}

	if root.name == "Error" {
		return nil, &RemoteError{
			TransactionID: root.childText("TransactionID"),
			Message:       root.childText("Message"),
		}
	}

	resp := &Response{action: desc, root: root}
	if desc.ResultSet == "" {
		return resp, nil
	}

	set := root.child(desc.ResultSet)
	if set == nil {
		return nil, fmt.Errorf("%w: %s: missing %s", ErrMalformedResponse, desc.Remote, desc.ResultSet)
	}
	for _, item := range set.children {
		if item.name != "Item" {
			continue
		}
		resp.items = append(resp.items, item.leaves())
	}

	if desc.ReturnsLogs() {
		resp.logs = make([]model.LogEntry, 0, len(resp.items))
		for i, fields := range resp.items {
			e, err := model.Parse(model.RawRecord{Kind: desc.LogKind, Fields: fields})
			if err != nil {
				return nil, fmt.Errorf("%w: %s item %d: %w", ErrMalformedResponse, desc.Remote, i, err)
			}
			resp.logs = append(resp.logs, e)
		}
	}
	return resp, nil
}

// node is a minimal XML element tree.
type node struct {
	name     string
	text     string
	children []*node
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

func (n *node) childText(name string) string {
	if c := n.child(name); c != nil {
		return c.text
	}
	return ""
}

func (n *node) leaves() map[string]string {
	m := make(map[string]string, len(n.children))
	for _, c := range n.children {
		if len(c.children) == 0 {
			m[c.name] = c.text
		}
	}
	return m
}

func parseXML(data []byte) (*node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var stack []*node
	var root *node

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, fmt.Errorf("multiple root elements")
			}
			n := &node{name: t.Name.Local}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			} else {
				root = n
			}
			stack = append(stack, n)
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text += string(t)
			}
		case xml.EndElement:
			n := stack[len(stack)-1]
			n.text = strings.TrimSpace(n.text)
			stack = stack[:len(stack)-1]
		}
	}

	if root == nil {
		return nil, fmt.Errorf("empty document")
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("unclosed element <%s>", stack[len(stack)-1].name)
	}
	return root, nil
}
