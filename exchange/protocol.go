package exchange

import (
	"errors"
	"fmt"

	"github.com/notargets/gofv/geometry"
	"github.com/notargets/gofv/mesh"
	"github.com/notargets/gofv/state"
	"github.com/notargets/gofv/types"
)

var ErrInconsistentPartition = errors.New("inconsistent block partition")

// Link names one side of a block to block connection.
type Link struct {
	Block, Boundary         int
	PeerBlock, PeerBoundary int
}

type payload uint8

const (
	payloadGeometry payload = iota
	payloadFlow
	payloadGradients
	nPayloads
)

// Boundaries per block are limited so that message tags stay unique.
const maxBoundaries = 64

func messageTag(block, boundary int, p payload) int {
	return (block*maxBoundaries+boundary)*int(nPayloads) + int(p)
}

// connection moves ghost data for one local boundary.
type connection interface {
	initiate(p payload)
	postReceive(comm Communicator, p payload)
	postSend(comm Communicator, p payload)
	complete(comm Communicator, p payload) error
}

// Protocol synchronises the ghost cells of every exchange boundary owned by
// one rank. Each exchange is four passes over all connections (pack, post
// receives, post sends, wait) so that no rank sends before every rank has
// posted its receives.
type Protocol struct {
	comm  Communicator
	conns []connection
	// Mapped and FullFace count the connections of each kind.
	Mapped, FullFace int
}

// NewProtocol builds the connections for the links whose Block is local.
// owner gives the rank of any block. Peers on the same rank are connected by
// direct cell mapping unless forceFullFace is set.
func NewProtocol(comm Communicator, local map[int]*mesh.Block, owner func(block int) int, links []Link,
	forceFullFace bool) (p *Protocol, err error) {
	p = &Protocol{comm: comm}
	for _, lk := range links {
		blk, ok := local[lk.Block]
		if !ok {
			continue
		}
		if lk.Boundary < 0 || lk.Boundary >= len(blk.Boundaries) || lk.Boundary >= maxBoundaries {
			err = fmt.Errorf("%w: block %d has no boundary %d", ErrInconsistentPartition, lk.Block, lk.Boundary)
			return
		}
		bnd := blk.Boundaries[lk.Boundary]
		bnd.Kind = types.BC_Exchange
		peerRank := owner(lk.PeerBlock)
		if peerRank == comm.Rank() && !forceFullFace {
			peer, ok := local[lk.PeerBlock]
			if !ok || lk.PeerBoundary < 0 || lk.PeerBoundary >= len(peer.Boundaries) {
				err = fmt.Errorf("%w: peer block %d boundary %d is not on rank %d",
					ErrInconsistentPartition, lk.PeerBlock, lk.PeerBoundary, comm.Rank())
				return
			}
			var mc *MappedCells
			if mc, err = NewMappedCells(bnd, peer.Boundaries[lk.PeerBoundary]); err != nil {
				err = fmt.Errorf("block %d boundary %d: %w", lk.Block, lk.Boundary, err)
				return
			}
			p.conns = append(p.conns, mc)
			p.Mapped++
			continue
		}
		p.conns = append(p.conns, newFullFace(blk, bnd, lk, peerRank))
		p.FullFace++
	}
	return
}

func (p *Protocol) exchange(pl payload) (err error) {
	for _, c := range p.conns {
		c.initiate(pl)
	}
	for _, c := range p.conns {
		c.postReceive(p.comm, pl)
	}
	for _, c := range p.conns {
		c.postSend(p.comm, pl)
	}
	for _, c := range p.conns {
		if err = c.complete(p.comm, pl); err != nil {
			return
		}
	}
	return
}

// ExchangeGeometry copies ghost positions and volumes (every grid level) and
// characteristic lengths from the peer's interior cells.
func (p *Protocol) ExchangeGeometry() error { return p.exchange(payloadGeometry) }

// ExchangeFlow copies the ghost flow states.
func (p *Protocol) ExchangeFlow() error { return p.exchange(payloadFlow) }

// ExchangeGradients copies the ghost cell gradients used by the viscous
// fluxes.
func (p *Protocol) ExchangeGradients() error { return p.exchange(payloadGradients) }

// source returns the interior cell feeding ghost layer of face m.
func source(bnd *mesh.Boundary, m, layer int) *mesh.Cell {
	in := bnd.Interior[m]
	return in[min(layer, len(in)-1)]
}

// MappedCells aliases the ghosts of a boundary to interior cells of a block
// in the same process. Ghost m, layer k mirrors the peer's interior cell k of
// face m.
type MappedCells struct {
	Ghosts  []*mesh.Cell
	Sources []*mesh.Cell
}

func NewMappedCells(bnd, peer *mesh.Boundary) (mc *MappedCells, err error) {
	if len(bnd.Faces) != len(peer.Faces) {
		err = fmt.Errorf("%w: %d faces against %d on the peer", ErrInconsistentPartition,
			len(bnd.Faces), len(peer.Faces))
		return
	}
	mc = &MappedCells{}
	for m, ghosts := range bnd.Ghosts {
		for layer, g := range ghosts {
			mc.Ghosts = append(mc.Ghosts, g)
			mc.Sources = append(mc.Sources, source(peer, m, layer))
		}
	}
	return
}

func (mc *MappedCells) initiate(p payload) {
	for i, g := range mc.Ghosts {
		copyCell(g, mc.Sources[i], p)
	}
}

func (mc *MappedCells) postReceive(Communicator, payload) {}

func (mc *MappedCells) postSend(Communicator, payload) {}

func (mc *MappedCells) complete(Communicator, payload) error { return nil }

func copyCell(dst, src *mesh.Cell, p payload) {
	switch p {
	case payloadGeometry:
		dst.Pos = src.Pos
		copy(dst.Volume, src.Volume)
		dst.L = src.L
	case payloadFlow:
		dst.FS.CopyValues(src.FS)
	case payloadGradients:
		dst.Grad = src.Grad
	}
}

// fullFace packs the peer facing interior cells of a boundary into one
// message per payload and unpacks the peer's message into the ghosts.
type fullFace struct {
	block    *mesh.Block
	bnd      *mesh.Boundary
	link     Link
	peerRank int
	sendBuf  []float64
	recvBuf  []float64
	recv     *Request
}

func newFullFace(blk *mesh.Block, bnd *mesh.Boundary, lk Link, peerRank int) *fullFace {
	return &fullFace{block: blk, bnd: bnd, link: lk, peerRank: peerRank}
}

func (ff *fullFace) cellSize(p payload) int {
	switch p {
	case payloadGeometry:
		return 4 + ff.block.NStages + 1
	case payloadGradients:
		return 12
	}
	return state.FlowStateSize(ff.block.Layout)
}

func (ff *fullFace) nCells() (n int) {
	for _, g := range ff.bnd.Ghosts {
		n += len(g)
	}
	return
}

func (ff *fullFace) initiate(p payload) {
	need := ff.nCells() * ff.cellSize(p)
	if cap(ff.sendBuf) < need {
		ff.sendBuf = make([]float64, need)
	}
	ff.sendBuf = ff.sendBuf[:need]
	buf := ff.sendBuf
	for m, ghosts := range ff.bnd.Ghosts {
		for layer := range ghosts {
			c := source(ff.bnd, m, layer)
			switch p {
			case payloadGeometry:
				buf = putVec(buf, c.Pos)
				buf[0] = c.L
				n := copy(buf[1:], c.Volume)
				buf = buf[1+n:]
			case payloadFlow:
				buf = state.Pack(c.FS, buf)
			case payloadGradients:
				for _, gv := range c.Grad.Vel {
					buf = putVec(buf, gv)
				}
				buf = putVec(buf, c.Grad.T)
			}
		}
	}
}

func putVec(buf []float64, v geometry.Vector3) []float64 {
	buf[0], buf[1], buf[2] = v[0], v[1], v[2]
	return buf[3:]
}

func getVec(buf []float64, v *geometry.Vector3) []float64 {
	*v = geometry.Vector3{buf[0], buf[1], buf[2]}
	return buf[3:]
}

func (ff *fullFace) postReceive(comm Communicator, p payload) {
	need := ff.nCells() * ff.cellSize(p)
	if cap(ff.recvBuf) < need {
		ff.recvBuf = make([]float64, need)
	}
	ff.recvBuf = ff.recvBuf[:need]
	ff.recv = comm.Irecv(ff.peerRank, messageTag(ff.link.Block, ff.link.Boundary, p), ff.recvBuf)
}

func (ff *fullFace) postSend(comm Communicator, p payload) {
	comm.Isend(ff.peerRank, messageTag(ff.link.PeerBlock, ff.link.PeerBoundary, p), ff.sendBuf)
}

func (ff *fullFace) complete(comm Communicator, p payload) (err error) {
	if err = comm.Wait(ff.recv); err != nil {
		return
	}
	if ff.recv.Received() != len(ff.recvBuf) {
		err = fmt.Errorf("%w: block %d boundary %d received %d values, expected %d",
			ErrInconsistentPartition, ff.link.Block, ff.link.Boundary, ff.recv.Received(), len(ff.recvBuf))
		return
	}
	buf := ff.recvBuf
	for _, ghosts := range ff.bnd.Ghosts {
		for _, g := range ghosts {
			switch p {
			case payloadGeometry:
				buf = getVec(buf, &g.Pos)
				g.L = buf[0]
				n := copy(g.Volume, buf[1:1+len(g.Volume)])
				buf = buf[1+n:]
			case payloadFlow:
				buf = state.Unpack(buf, g.FS)
			case payloadGradients:
				for d := range g.Grad.Vel {
					buf = getVec(buf, &g.Grad.Vel[d])
				}
				buf = getVec(buf, &g.Grad.T)
			}
		}
	}
	return
}
