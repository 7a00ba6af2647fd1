// Package universe resolves a named block to its member symbols.
package universe

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"golang.org/x/text/encoding/htmlindex"

	"BlockScreener/internal/model"
)

// ErrBlockNotFound is returned when the requested block is not defined.
var ErrBlockNotFound = errors.New("block not found")

// Universe lists the members of a block in definition order.
type Universe interface {
	MembersOf(block string) ([]model.Symbol, error)
}

// AShareMarkets are the block-file market tags kept by the loader.
var AShareMarkets = map[string]bool{"USHA": true, "USZA": true}

// Static is an in-memory Universe.
type Static map[string][]model.Symbol

func (s Static) MembersOf(block string) ([]model.Symbol, error) {
	members, ok := s[block]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBlockNotFound, block)
	}
	out := make([]model.Symbol, len(members))
	copy(out, members)
	return out, nil
}

// Blocks returns the block names in sorted order.
func (s Static) Blocks() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type blockFile struct {
	Blocks []xmlBlock `xml:"Block"`
}

type xmlBlock struct {
	Name       string        `xml:"name,attr"`
	Securities []xmlSecurity `xml:"security"`
}

type xmlSecurity struct {
	Market string `xml:"market,attr"`
	Code   string `xml:"code,attr"`
	Name   string `xml:"name,attr"`
}

// LoadFile parses a block definition file of the form
//
//	<Blocks><Block name="..."><security market="USHA" code="600000"/></Block></Blocks>
//
// Only Shanghai and Shenzhen A-share members are kept; duplicates within a
// block are dropped.
func LoadFile(path string) (Static, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open block file: %w", err)
	}
	defer f.Close()
	u, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse block file %s: %w", path, err)
	}
	return u, nil
}

// Parse reads block definitions from r. Non UTF-8 documents are decoded per
// their XML declaration.
func Parse(r io.Reader) (Static, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = func(label string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(label)
		if err != nil {
			return nil, err
		}
		return enc.NewDecoder().Reader(input), nil
	}

	var doc blockFile
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}

	u := make(Static, len(doc.Blocks))
	for _, b := range doc.Blocks {
		seen := make(map[string]bool, len(b.Securities))
		members := make([]model.Symbol, 0, len(b.Securities))
		for _, s := range b.Securities {
			if !AShareMarkets[s.Market] || s.Code == "" || seen[s.Code] {
				continue
			}
			seen[s.Code] = true
			members = append(members, model.Symbol{Code: s.Code, Name: s.Name, Market: s.Market})
		}
		u[b.Name] = members
	}
	return u, nil
}
