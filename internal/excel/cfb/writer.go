package cfb

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf16"
)

const (
	sectorSize     = 512
	miniSectorSize = 64
	miniCutoff     = 4096
	idsPerSector   = sectorSize / 4
	dirEntrySize   = 128
	headerDIFAT    = 109

	freeSect   uint32 = 0xFFFFFFFF
	endOfChain uint32 = 0xFFFFFFFE
	fatSect    uint32 = 0xFFFFFFFD
	difatSect  uint32 = 0xFFFFFFFC
	noStream   uint32 = 0xFFFFFFFF

	typeStorage byte = 1
	typeStream  byte = 2
	typeRoot    byte = 5
	colorBlack  byte = 1
)

type node struct {
	name     string
	typ      byte
	clsid    [16]byte
	data     []byte
	children []*node

	id          uint32
	left, right uint32
	child       uint32
	start       uint32
	size        uint32
}

// WriteFile saves f to path through a temporary file in the same directory,
// so a failed write leaves the original untouched. An existing file keeps
// its permissions.
func (f *File) WriteFile(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".lademeter-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if info, err := os.Stat(path); err == nil {
		if err := tmp.Chmod(info.Mode().Perm()); err != nil {
			tmp.Close()
			return err
		}
	}
	if _, err := f.WriteTo(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// WriteTo serializes f as a version 3 compound file.
func (f *File) WriteTo(w io.Writer) (int64, error) {
	root, nodes, err := f.tree()
	if err != nil {
		return 0, err
	}

	var (
		sectors []byte
		fat     []uint32
	)
	alloc := func(data []byte) uint32 {
		if len(data) == 0 {
			return endOfChain
		}
		start := uint32(len(fat))
		n := (len(data) + sectorSize - 1) / sectorSize
		for i := 0; i < n; i++ {
			next := uint32(len(fat)) + 1
			if i == n-1 {
				next = endOfChain
			}
			fat = append(fat, next)
		}
		sectors = append(sectors, pad(data, sectorSize)...)
		return start
	}

	// Small streams share the mini stream; the rest get their own chains.
	var (
		mini    []byte
		miniFAT []uint32
	)
	for _, n := range nodes {
		if n.typ != typeStream {
			continue
		}
		n.size = uint32(len(n.data))
		switch {
		case len(n.data) == 0:
			n.start = endOfChain
		case len(n.data) < miniCutoff:
			n.start = uint32(len(miniFAT))
			count := (len(n.data) + miniSectorSize - 1) / miniSectorSize
			for i := 0; i < count; i++ {
				next := uint32(len(miniFAT)) + 1
				if i == count-1 {
					next = endOfChain
				}
				miniFAT = append(miniFAT, next)
			}
			mini = append(mini, pad(n.data, miniSectorSize)...)
		default:
			n.start = alloc(n.data)
		}
	}

	root.start = alloc(mini)
	root.size = uint32(len(mini))

	miniFATStart, miniFATCount := endOfChain, 0
	if len(miniFAT) > 0 {
		raw := idSector(miniFAT)
		miniFATCount = len(raw) / sectorSize
		miniFATStart = alloc(raw)
	}

	dir := make([]byte, 0, len(nodes)*dirEntrySize)
	for _, n := range nodes {
		dir = append(dir, n.entry()...)
	}
	for len(dir)%sectorSize != 0 {
		dir = append(dir, emptyEntry()...)
	}
	dirStart := alloc(dir)

	// FAT and DIFAT sectors describe themselves, so size them until stable.
	used := len(fat)
	fatCount, difatCount := 0, 0
	for {
		total := used + fatCount + difatCount
		nf := (total + idsPerSector - 1) / idsPerSector
		nd := 0
		if nf > headerDIFAT {
			nd = (nf - headerDIFAT + idsPerSector - 2) / (idsPerSector - 1)
		}
		if nf == fatCount && nd == difatCount {
			break
		}
		fatCount, difatCount = nf, nd
	}

	fatIDs := make([]uint32, fatCount)
	for i := range fatIDs {
		fatIDs[i] = uint32(used + i)
		fat = append(fat, fatSect)
	}
	difatStart := endOfChain
	if difatCount > 0 {
		difatStart = uint32(len(fat))
	}
	for i := 0; i < difatCount; i++ {
		fat = append(fat, difatSect)
	}
	for len(fat) < fatCount*idsPerSector {
		fat = append(fat, freeSect)
	}
	sectors = append(sectors, idSector(fat)...)

	for i := 0; i < difatCount; i++ {
		ids := make([]uint32, idsPerSector)
		for j := range ids {
			ids[j] = freeSect
		}
		for j := 0; j < idsPerSector-1; j++ {
			k := headerDIFAT + i*(idsPerSector-1) + j
			if k < len(fatIDs) {
				ids[j] = fatIDs[k]
			}
		}
		ids[idsPerSector-1] = endOfChain
		if i < difatCount-1 {
			ids[idsPerSector-1] = difatStart + uint32(i) + 1
		}
		sectors = append(sectors, idSector(ids)...)
	}

	head := make([]byte, sectorSize)
	copy(head, Signature)
	le := binary.LittleEndian
	le.PutUint16(head[24:], 0x003E)
	le.PutUint16(head[26:], 0x0003)
	le.PutUint16(head[28:], 0xFFFE)
	le.PutUint16(head[30:], 9)
	le.PutUint16(head[32:], 6)
	le.PutUint32(head[44:], uint32(fatCount))
	le.PutUint32(head[48:], dirStart)
	le.PutUint32(head[56:], miniCutoff)
	le.PutUint32(head[60:], miniFATStart)
	le.PutUint32(head[64:], uint32(miniFATCount))
	le.PutUint32(head[68:], difatStart)
	le.PutUint32(head[72:], uint32(difatCount))
	for i := 0; i < headerDIFAT; i++ {
		id := freeSect
		if i < len(fatIDs) {
			id = fatIDs[i]
		}
		le.PutUint32(head[76+i*4:], id)
	}

	n, err := w.Write(head)
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(sectors)
	return int64(n + m), err
}

// tree builds the directory: storages implied by entry paths are created,
// ids are assigned in order and each storage's children become a balanced
// binary search tree.
func (f *File) tree() (*node, []*node, error) {
	root := &node{name: "Root Entry", typ: typeRoot, clsid: f.RootCLSID}
	index := map[string]*node{"": root}

	var storage func(path []string) *node
	storage = func(path []string) *node {
		key := strings.ToUpper(strings.Join(path, "/"))
		if n, ok := index[key]; ok {
			return n
		}
		parent := storage(path[:len(path)-1])
		n := &node{name: path[len(path)-1], typ: typeStorage}
		parent.children = append(parent.children, n)
		index[key] = n
		return n
	}

	for _, e := range f.Entries {
		if utf16Len(e.Name) > 31 {
			return nil, nil, fmt.Errorf("entry name %q is too long", e.Name)
		}
		parent := storage(e.Path)
		if e.Dir {
			n := storage(append(append([]string(nil), e.Path...), e.Name))
			n.clsid = e.CLSID
			continue
		}
		parent.children = append(parent.children, &node{
			name:  e.Name,
			typ:   typeStream,
			clsid: e.CLSID,
			data:  e.Data,
		})
	}

	var nodes []*node
	var number func(n *node)
	number = func(n *node) {
		n.id = uint32(len(nodes))
		nodes = append(nodes, n)
		sort.SliceStable(n.children, func(i, j int) bool {
			return less(n.children[i].name, n.children[j].name)
		})
		for _, c := range n.children {
			number(c)
		}
	}
	number(root)

	for _, n := range nodes {
		n.left, n.right = noStream, noStream
	}
	for _, n := range nodes {
		n.child = balance(n.children)
	}
	return root, nodes, nil
}

func balance(children []*node) uint32 {
	if len(children) == 0 {
		return noStream
	}
	mid := len(children) / 2
	n := children[mid]
	n.left = balance(children[:mid])
	n.right = balance(children[mid+1:])
	return n.id
}

// less orders names the way compound files require: shorter names first,
// then by upper-cased code units.
func less(a, b string) bool {
	ua, ub := utf16.Encode([]rune(strings.ToUpper(a))), utf16.Encode([]rune(strings.ToUpper(b)))
	if len(ua) != len(ub) {
		return len(ua) < len(ub)
	}
	for i := range ua {
		if ua[i] != ub[i] {
			return ua[i] < ub[i]
		}
	}
	return false
}

func (n *node) entry() []byte {
	b := make([]byte, dirEntrySize)
	le := binary.LittleEndian
	name := utf16.Encode([]rune(n.name))
	for i, c := range name {
		le.PutUint16(b[i*2:], c)
	}
	le.PutUint16(b[64:], uint16((len(name)+1)*2))
	b[66] = n.typ
	b[67] = colorBlack
	le.PutUint32(b[68:], n.left)
	le.PutUint32(b[72:], n.right)
	child := noStream
	if n.typ != typeStream {
		child = n.child
	}
	le.PutUint32(b[76:], child)
	copy(b[80:96], n.clsid[:])
	start := n.start
	if n.typ == typeStorage {
		start = 0
	}
	le.PutUint32(b[116:], start)
	le.PutUint32(b[120:], n.size)
	return b
}

func emptyEntry() []byte {
	b := make([]byte, dirEntrySize)
	le := binary.LittleEndian
	le.PutUint32(b[68:], noStream)
	le.PutUint32(b[72:], noStream)
	le.PutUint32(b[76:], noStream)
	return b
}

func idSector(ids []uint32) []byte {
	count := (len(ids) + idsPerSector - 1) / idsPerSector * idsPerSector
	b := make([]byte, count*4)
	for i := 0; i < count; i++ {
		id := freeSect
		if i < len(ids) {
			id = ids[i]
		}
		binary.LittleEndian.PutUint32(b[i*4:], id)
	}
	return b
}

func pad(b []byte, size int) []byte {
	if rem := len(b) % size; rem != 0 {
		return append(append([]byte(nil), b...), make([]byte, size-rem)...)
	}
	return b
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}
