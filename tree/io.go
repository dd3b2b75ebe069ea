package tree

import (
	"encoding/binary"
	"io"
	"log/slog"
	"math"

	"github.com/YuminosukeSato/regtree/pkg/errors"
	treelog "github.com/YuminosukeSato/regtree/pkg/log"
)

// Fixed binary layout, little-endian:
//
//	37 x int32   parameter block (6 fields + 31 reserved, verbatim)
//	NumNodes x   20-byte node records (parent, left, right, sindex, info)
//	NumNodes x   16-byte stat records (loss_chg, sum_hess, base_weight, leaf_child_cnt)
//	optional     uint64 count + count x float32 leaf vector, present only
//	             when SizeLeafVector != 0
//
// The stream holds exactly one tree's bytes; an ensemble-level container
// sequences multiple Save/Load calls and owns any sequence header.
const (
	paramRecordSize = 37 * 4
	nodeRecordSize  = 20
	statRecordSize  = 16
)

func putNode(b []byte, n Node) {
	binary.LittleEndian.PutUint32(b[0:], uint32(n.parent))
	binary.LittleEndian.PutUint32(b[4:], uint32(n.cleft))
	binary.LittleEndian.PutUint32(b[8:], uint32(n.cright))
	binary.LittleEndian.PutUint32(b[12:], n.sindex)
	binary.LittleEndian.PutUint32(b[16:], math.Float32bits(n.info))
}

func getNode(b []byte) Node {
	return Node{
		parent: int32(binary.LittleEndian.Uint32(b[0:])),
		cleft:  int32(binary.LittleEndian.Uint32(b[4:])),
		cright: int32(binary.LittleEndian.Uint32(b[8:])),
		sindex: binary.LittleEndian.Uint32(b[12:]),
		info:   math.Float32frombits(binary.LittleEndian.Uint32(b[16:])),
	}
}

func putStat(b []byte, s NodeStat) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(s.LossChg))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(s.SumHess))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(s.BaseWeight))
	binary.LittleEndian.PutUint32(b[12:], uint32(s.LeafChildCnt))
}

func getStat(b []byte) NodeStat {
	return NodeStat{
		LossChg:      math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		SumHess:      math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		BaseWeight:   math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
		LeafChildCnt: int32(binary.LittleEndian.Uint32(b[12:])),
	}
}

// Save writes the tree to w in the fixed binary layout.
func (t *Tree) Save(w io.Writer) error {
	if t.param.NumNodes == 0 {
		return errors.NewInvalidModelError("Save", "tree has zero nodes")
	}
	if int(t.param.NumNodes) != len(t.nodes) || int(t.param.NumNodes) != len(t.stats) {
		panic(errors.AssertionFailedf("node arena out of sync with parameters: %d nodes, %d stats, num_nodes=%d",
			len(t.nodes), len(t.stats), t.param.NumNodes))
	}

	n := int(t.param.NumNodes)
	size := paramRecordSize + n*(nodeRecordSize+statRecordSize)
	if t.param.SizeLeafVector != 0 {
		size += 8 + 4*len(t.leafVector)
	}
	buf := make([]byte, size)

	off := 0
	binary.LittleEndian.PutUint32(buf[off:], uint32(t.param.NumRoots))
	binary.LittleEndian.PutUint32(buf[off+4:], uint32(t.param.NumNodes))
	binary.LittleEndian.PutUint32(buf[off+8:], uint32(t.param.NumDeleted))
	binary.LittleEndian.PutUint32(buf[off+12:], uint32(t.param.MaxDepth))
	binary.LittleEndian.PutUint32(buf[off+16:], uint32(t.param.NumFeature))
	binary.LittleEndian.PutUint32(buf[off+20:], uint32(t.param.SizeLeafVector))
	for i, r := range t.param.Reserved {
		binary.LittleEndian.PutUint32(buf[off+24+4*i:], uint32(r))
	}
	off += paramRecordSize

	for _, node := range t.nodes {
		putNode(buf[off:], node)
		off += nodeRecordSize
	}
	for _, stat := range t.stats {
		putStat(buf[off:], stat)
		off += statRecordSize
	}
	if t.param.SizeLeafVector != 0 {
		binary.LittleEndian.PutUint64(buf[off:], uint64(len(t.leafVector)))
		off += 8
		for _, v := range t.leafVector {
			binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
			off += 4
		}
	}

	if _, err := w.Write(buf); err != nil {
		return errors.Wrap(err, "failed to write tree")
	}

	slog.Debug("saved tree",
		treelog.OperationKey, "save",
		treelog.TreeNodesKey, t.param.NumNodes,
		treelog.TreeDeletedKey, t.param.NumDeleted,
		treelog.BytesKey, len(buf))
	return nil
}

// Load replaces the tree with the one serialized in r and recomputes the
// free list from the deletion sentinels. Integrity violations (zero node
// count, free list not matching the stored deleted count) abort the load
// with an InvalidModelError; the tree is left unusable, there is no
// partial-state recovery.
func (t *Tree) Load(r io.Reader) error {
	header := make([]byte, paramRecordSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return errors.Wrap(err, "failed to read tree parameters")
	}
	var p Param
	p.NumRoots = int32(binary.LittleEndian.Uint32(header[0:]))
	p.NumNodes = int32(binary.LittleEndian.Uint32(header[4:]))
	p.NumDeleted = int32(binary.LittleEndian.Uint32(header[8:]))
	p.MaxDepth = int32(binary.LittleEndian.Uint32(header[12:]))
	p.NumFeature = int32(binary.LittleEndian.Uint32(header[16:]))
	p.SizeLeafVector = int32(binary.LittleEndian.Uint32(header[20:]))
	for i := range p.Reserved {
		p.Reserved[i] = int32(binary.LittleEndian.Uint32(header[24+4*i:]))
	}

	if p.NumNodes == 0 {
		return errors.NewInvalidModelError("Load", "tree has zero nodes")
	}

	n := int(p.NumNodes)
	body := make([]byte, n*(nodeRecordSize+statRecordSize))
	if _, err := io.ReadFull(r, body); err != nil {
		return errors.Wrap(err, "failed to read node records")
	}

	nodes := make([]Node, n)
	stats := make([]NodeStat, n)
	off := 0
	for i := range nodes {
		nodes[i] = getNode(body[off:])
		off += nodeRecordSize
	}
	for i := range stats {
		stats[i] = getStat(body[off:])
		off += statRecordSize
	}

	var leafVector []float32
	if p.SizeLeafVector != 0 {
		var lenBuf [8]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return errors.Wrap(err, "failed to read leaf vector length")
		}
		count := binary.LittleEndian.Uint64(lenBuf[:])
		if count != uint64(n)*uint64(p.SizeLeafVector) {
			return errors.NewInvalidModelError("Load",
				"leaf vector holds %d entries, want %d", count, uint64(n)*uint64(p.SizeLeafVector))
		}
		raw := make([]byte, 4*count)
		if _, err := io.ReadFull(r, raw); err != nil {
			return errors.Wrap(err, "failed to read leaf vector")
		}
		leafVector = make([]float32, count)
		for i := range leafVector {
			leafVector[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[4*i:]))
		}
	}

	// recompute the free list from the deletion sentinels
	var deleted []int32
	for i := p.NumRoots; i < p.NumNodes; i++ {
		if nodes[i].IsDeleted() {
			deleted = append(deleted, i)
		}
	}
	if int32(len(deleted)) != p.NumDeleted {
		return errors.NewInvalidModelError("Load",
			"free list holds %d nodes, stored deleted count is %d", len(deleted), p.NumDeleted)
	}

	t.param = p
	t.nodes = nodes
	t.stats = stats
	t.leafVector = leafVector
	t.deletedNodes = deleted
	t.meanValues = nil
	t.bump()

	slog.Debug("loaded tree",
		treelog.OperationKey, "load",
		treelog.TreeNodesKey, t.param.NumNodes,
		treelog.TreeRootsKey, t.param.NumRoots,
		treelog.TreeDeletedKey, t.param.NumDeleted,
		treelog.TreeLeafVectorKey, t.param.SizeLeafVector)
	return nil
}
