package streamer

import (
	"fmt"
	"strings"

	"github.com/treecol/treecol"
	"github.com/treecol/treecol/rbuf"
)

// Object-reference framing constants.
const (
	classMask   = 0x80000000
	newClassTag = 0xffffffff
	mapOffset   = 2
)

// Register parses a serialized streamer-record set (a TList of
// TStreamerInfo objects) and adds every class it describes, then runs the
// link pass so forward references between the new classes resolve.
func (r *Registry) Register(raw []byte) error {
	p := &parser{c: rbuf.New(raw), refs: make(map[int]string)}
	infos, err := p.readInfoList()
	if err != nil {
		return fmt.Errorf("streamer records: %w", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, info := range infos {
		r.addWithLock(info)
	}
	r.linkWithLock()
	return nil
}

type parser struct {
	c *rbuf.Cursor
	// refs maps buffer displacements to class names already named by a
	// new-class tag, the target of class back-references.
	refs    map[int]string
	numRefs int
}

func (p *parser) readInfoList() ([]*Info, error) {
	start := p.c.Pos()
	count, _, err := p.c.ByteCountVersion()
	if err != nil {
		return nil, err
	}
	if err := p.c.SkipTObject(); err != nil {
		return nil, err
	}
	if _, err := p.c.String(); err != nil { // list name
		return nil, err
	}
	size, err := p.c.ReadI32()
	if err != nil {
		return nil, err
	}
	infos := make([]*Info, 0, size)
	for i := 0; i < int(size); i++ {
		class, null, err := p.readObjectAny()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		if null {
			continue
		}
		if class != "TStreamerInfo" {
			return nil, fmt.Errorf("record %d: class %q where TStreamerInfo expected: %w",
				i, class, treecol.ErrUnsupportedLayout)
		}
		info, err := p.readInfo()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		infos = append(infos, info)
		// Each list entry is followed by a short option string.
		n, err := p.c.ReadU8()
		if err != nil {
			return nil, err
		}
		if err := p.c.Skip(int(n)); err != nil {
			return nil, err
		}
	}
	return infos, p.c.CheckByteCount(start, count, "TList")
}

// readObjectAny reads the polymorphic-object preamble and leaves the
// cursor at the object body.  It returns the object's class name, or
// null=true for a null reference or an object back-reference (streamer
// records never need the referenced object itself, only its extent).
func (p *parser) readObjectAny() (class string, null bool, err error) {
	beg := p.c.Pos()
	first, err := p.c.ReadU32()
	if err != nil {
		return "", false, err
	}
	var tag uint32
	var bcnt int
	counted := first&rbuf.ByteCountMask != 0 && first != newClassTag
	if counted {
		bcnt = int(first &^ rbuf.ByteCountMask)
		if tag, err = p.c.ReadU32(); err != nil {
			return "", false, err
		}
	} else {
		tag = first
	}
	switch {
	case tag == 0:
		return "", true, nil
	case tag == newClassTag:
		ref := p.c.Pos() - 4 + mapOffset
		class, err = p.c.CString()
		if err != nil {
			return "", false, err
		}
		if counted {
			p.refs[ref] = class
		} else {
			p.numRefs++
			p.refs[p.numRefs] = class
		}
		return class, false, nil
	case tag&classMask == 0:
		// A back-reference to an already-read object.  Skip its extent.
		if !counted {
			return "", false, fmt.Errorf("uncounted object back-reference: %w",
				treecol.ErrUnsupportedLayout)
		}
		p.c.SeekTo(beg + bcnt + 4)
		return "", true, nil
	default:
		class, ok := p.refs[int(tag&^classMask)]
		if !ok {
			return "", false, fmt.Errorf("class-tag reference %#x out of range: %w",
				tag, treecol.ErrUnsupportedLayout)
		}
		return class, false, nil
	}
}

func (p *parser) readInfo() (*Info, error) {
	start := p.c.Pos()
	count, _, err := p.c.ByteCountVersion()
	if err != nil {
		return nil, err
	}
	info := &Info{}
	if info.Name, info.Title, err = p.c.NameTitle(); err != nil {
		return nil, err
	}
	if info.CheckSum, err = p.c.ReadU32(); err != nil {
		return nil, err
	}
	if info.Version, err = p.c.ReadI32(); err != nil {
		return nil, err
	}
	class, null, err := p.readObjectAny()
	if err != nil {
		return nil, fmt.Errorf("class %s: %w", info.Name, err)
	}
	if !null {
		if class != "TObjArray" {
			return nil, fmt.Errorf("class %s: element container is %q: %w",
				info.Name, class, treecol.ErrUnsupportedLayout)
		}
		if info.Elements, err = p.readElementArray(); err != nil {
			return nil, fmt.Errorf("class %s: %w", info.Name, err)
		}
	}
	return info, p.c.CheckByteCount(start, count, info.Name)
}

func (p *parser) readElementArray() ([]*Element, error) {
	start := p.c.Pos()
	count, _, err := p.c.ByteCountVersion()
	if err != nil {
		return nil, err
	}
	if err := p.c.SkipTObject(); err != nil {
		return nil, err
	}
	if _, err := p.c.String(); err != nil { // array name
		return nil, err
	}
	size, err := p.c.ReadI32()
	if err != nil {
		return nil, err
	}
	if _, err := p.c.ReadI32(); err != nil { // lower bound
		return nil, err
	}
	elements := make([]*Element, 0, size)
	for i := 0; i < int(size); i++ {
		class, null, err := p.readObjectAny()
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if null {
			continue
		}
		e, err := p.readElement(class)
		if err != nil {
			return nil, fmt.Errorf("element %d (%s): %w", i, class, err)
		}
		elements = append(elements, e)
	}
	return elements, p.c.CheckByteCount(start, count, "TObjArray")
}

// readElement decodes one TStreamerElement subclass: the versioned wrapper,
// the common base, then the subclass extras.
func (p *parser) readElement(class string) (*Element, error) {
	start := p.c.Pos()
	count, version, err := p.c.ByteCountVersion()
	if err != nil {
		return nil, err
	}
	e, err := p.readElementBase()
	if err != nil {
		return nil, err
	}
	switch class {
	case "TStreamerBase":
		// The element name is the base class name.
		e.ClassRef = e.Name
		if version >= 2 {
			if e.BaseVersion, err = p.c.ReadI32(); err != nil {
				return nil, err
			}
		}
	case "TStreamerBasicType", "TStreamerString":
	case "TStreamerBasicPointer":
		if _, err := p.c.ReadI32(); err != nil { // counter version
			return nil, err
		}
		if e.CountName, err = p.c.String(); err != nil {
			return nil, err
		}
		if _, err := p.c.String(); err != nil { // counter's class
			return nil, err
		}
	case "TStreamerObject", "TStreamerObjectAny", "TStreamerObjectPointer":
		e.ClassRef = strings.TrimSuffix(e.TypeName, "*")
	case "TStreamerSTL":
		if e.STLType, err = p.c.ReadI32(); err != nil {
			return nil, err
		}
		if e.CType, err = p.c.ReadI32(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("streamer element class %q: %w", class, treecol.ErrUnknownClass)
	}
	return e, p.c.CheckByteCount(start, count, class)
}

func (p *parser) readElementBase() (*Element, error) {
	start := p.c.Pos()
	count, _, err := p.c.ByteCountVersion()
	if err != nil {
		return nil, err
	}
	e := &Element{classID: -1}
	if e.Name, e.Title, err = p.c.NameTitle(); err != nil {
		return nil, err
	}
	kind, err := p.c.ReadI32()
	if err != nil {
		return nil, err
	}
	e.Kind = Kind(kind)
	if e.Size, err = p.c.ReadI32(); err != nil {
		return nil, err
	}
	if e.ArrayLen, err = p.c.ReadI32(); err != nil {
		return nil, err
	}
	if _, err = p.c.ReadI32(); err != nil { // array dimension count
		return nil, err
	}
	if _, err = p.c.ReadI32Array(5); err != nil { // per-dimension maxima
		return nil, err
	}
	if e.TypeName, err = p.c.String(); err != nil {
		return nil, err
	}
	return e, p.c.CheckByteCount(start, count, "TStreamerElement")
}
