package state

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// deviceBuf simulates an accelerator-resident buffer.
type deviceBuf struct {
	data  []float32
	moved *int
}

func (b deviceBuf) ToHost() (Buffer, error) {
	if b.moved != nil {
		*b.moved++
	}
	return HostFloat32{Data: b.data}, nil
}

// failingBuf always fails relocation.
type failingBuf struct{}

func (failingBuf) ToHost() (Buffer, error) { return nil, errors.New("device unreachable") }

func TestToHost_NilTree(t *testing.T) {
	out, err := ToHost(nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestToHost_LeafBufferRelocated(t *testing.T) {
	moved := 0
	out, err := ToHost(Leaf{Value: deviceBuf{data: []float32{1, 2}, moved: &moved}})
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	leaf, ok := out.(Leaf)
	require.True(t, ok)
	host, ok := leaf.Value.(HostFloat32)
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2}, host.Data)
}

func TestToHost_NonBufferLeafUntouched(t *testing.T) {
	out, err := ToHost(Leaf{Value: 42})
	require.NoError(t, err)
	leaf, ok := out.(Leaf)
	require.True(t, ok)
	assert.Equal(t, 42, leaf.Value)
}

func TestToHost_NestedStructurePreserved(t *testing.T) {
	moved := 0
	tree := Node{Children: []Tree{
		Node{Children: []Tree{
			Leaf{Value: deviceBuf{data: []float32{1}, moved: &moved}},
			Leaf{Value: deviceBuf{data: []float32{2}, moved: &moved}},
		}},
		Leaf{Value: "meta"},
	}}

	out, err := ToHost(tree)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	root, ok := out.(Node)
	require.True(t, ok)
	require.Len(t, root.Children, 2)

	inner, ok := root.Children[0].(Node)
	require.True(t, ok)
	require.Len(t, inner.Children, 2)
	for i, want := range []float32{1, 2} {
		leaf, lok := inner.Children[i].(Leaf)
		require.True(t, lok)
		host, hok := leaf.Value.(HostFloat32)
		require.True(t, hok)
		assert.Equal(t, []float32{want}, host.Data)
	}

	meta, ok := root.Children[1].(Leaf)
	require.True(t, ok)
	assert.Equal(t, "meta", meta.Value)
}

func TestToHost_LeafErrorAbortsWalk(t *testing.T) {
	tree := Node{Children: []Tree{
		Leaf{Value: HostFloat32{Data: []float32{1}}},
		Leaf{Value: failingBuf{}},
	}}
	_, err := ToHost(tree)
	assert.Error(t, err)
}

func TestHostFloat32_ToHostIdentity(t *testing.T) {
	b := HostFloat32{Data: []float32{3}}
	out, err := b.ToHost()
	require.NoError(t, err)
	assert.Equal(t, b, out)
}
