package export

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/pkg/errors"

	"github.com/depthfuse/depthfuse/pointcloud"
	"github.com/depthfuse/depthfuse/scene"
)

// glTF 2.0 component and primitive constants.
const (
	glbMagic        = 0x46546C67
	glbChunkJSON    = 0x4E4F534A
	glbChunkBIN     = 0x004E4942
	componentFloat  = 5126
	componentUByte  = 5121
	targetArrayBuf  = 34962
	primitivePoints = 0
)

type gltfAsset struct {
	Version   string `json:"version"`
	Generator string `json:"generator"`
}

type gltfBuffer struct {
	ByteLength int `json:"byteLength"`
}

type gltfBufferView struct {
	Buffer     int `json:"buffer"`
	ByteOffset int `json:"byteOffset"`
	ByteLength int `json:"byteLength"`
	Target     int `json:"target,omitempty"`
}

type gltfAccessor struct {
	BufferView    int       `json:"bufferView"`
	ComponentType int       `json:"componentType"`
	Count         int       `json:"count"`
	Type          string    `json:"type"`
	Normalized    bool      `json:"normalized,omitempty"`
	Min           []float64 `json:"min,omitempty"`
	Max           []float64 `json:"max,omitempty"`
}

type gltfPrimitive struct {
	Attributes map[string]int `json:"attributes"`
	Mode       int            `json:"mode"`
}

type gltfMesh struct {
	Name       string          `json:"name,omitempty"`
	Primitives []gltfPrimitive `json:"primitives"`
}

type gltfPerspective struct {
	AspectRatio float64 `json:"aspectRatio"`
	YFov        float64 `json:"yfov"`
	ZNear       float64 `json:"znear"`
}

type gltfCamera struct {
	Type        string          `json:"type"`
	Perspective gltfPerspective `json:"perspective"`
}

type gltfNode struct {
	Name   string    `json:"name,omitempty"`
	Mesh   *int      `json:"mesh,omitempty"`
	Camera *int      `json:"camera,omitempty"`
	Matrix []float64 `json:"matrix,omitempty"`
}

type gltfScene struct {
	Nodes []int `json:"nodes,omitempty"`
}

type gltfDocument struct {
	Asset       gltfAsset        `json:"asset"`
	Scene       int              `json:"scene"`
	Scenes      []gltfScene      `json:"scenes"`
	Nodes       []gltfNode       `json:"nodes,omitempty"`
	Meshes      []gltfMesh       `json:"meshes,omitempty"`
	Cameras     []gltfCamera     `json:"cameras,omitempty"`
	Buffers     []gltfBuffer     `json:"buffers,omitempty"`
	BufferViews []gltfBufferView `json:"bufferViews,omitempty"`
	Accessors   []gltfAccessor   `json:"accessors,omitempty"`
}

// WriteGLB serializes the cloud and the prediction's cameras as a binary
// glTF. The point cloud becomes a single POINTS primitive with positions and
// vertex colors; every view contributes a camera node whose transform is the
// camera-to-world matrix converted to the glTF convention of a camera looking
// down its local -Z axis.
func WriteGLB(out io.Writer, pred *scene.Prediction, cloud *pointcloud.PointCloud) error {
	n := cloud.Size()

	posBytes := make([]byte, n*12)
	colBytes := make([]byte, n*4)
	minPos := []float64{math.Inf(1), math.Inf(1), math.Inf(1)}
	maxPos := []float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	cloud.Iterate(func(i int, p pointcloud.Point) bool {
		for j, v := range []float64{p.Position.X, p.Position.Y, p.Position.Z} {
			// Min/max are computed over the stored float32 values so the
			// accessor bounds stay exact.
			f := float32(v)
			binary.LittleEndian.PutUint32(posBytes[i*12+j*4:], math.Float32bits(f))
			if float64(f) < minPos[j] {
				minPos[j] = float64(f)
			}
			if float64(f) > maxPos[j] {
				maxPos[j] = float64(f)
			}
		}
		colBytes[i*4] = p.Color.R
		colBytes[i*4+1] = p.Color.G
		colBytes[i*4+2] = p.Color.B
		colBytes[i*4+3] = 255
		return true
	})

	bin := make([]byte, 0, len(posBytes)+len(colBytes))
	bin = append(bin, posBytes...)
	bin = append(bin, colBytes...)

	doc := gltfDocument{
		Asset: gltfAsset{Version: "2.0", Generator: "depthfuse"},
		Scene: 0,
	}
	var sceneNodes []int
	// The glTF schema requires accessor counts and buffer lengths of at
	// least 1, so an empty cloud gets no mesh at all: the file stays a valid
	// camera-only scene.
	if n > 0 {
		doc.Buffers = []gltfBuffer{{ByteLength: len(bin)}}
		doc.BufferViews = []gltfBufferView{
			{Buffer: 0, ByteOffset: 0, ByteLength: len(posBytes), Target: targetArrayBuf},
			{Buffer: 0, ByteOffset: len(posBytes), ByteLength: len(colBytes), Target: targetArrayBuf},
		}
		doc.Accessors = []gltfAccessor{
			{BufferView: 0, ComponentType: componentFloat, Count: n, Type: "VEC3", Min: minPos, Max: maxPos},
			{BufferView: 1, ComponentType: componentUByte, Count: n, Type: "VEC4", Normalized: true},
		}
		doc.Meshes = []gltfMesh{{
			Name: "points",
			Primitives: []gltfPrimitive{{
				Attributes: map[string]int{"POSITION": 0, "COLOR_0": 1},
				Mode:       primitivePoints,
			}},
		}}
		meshIdx := 0
		doc.Nodes = append(doc.Nodes, gltfNode{Name: "cloud", Mesh: &meshIdx})
		sceneNodes = append(sceneNodes, 0)
	}

	for i, view := range pred.Views {
		intr := view.Intrinsics
		if err := intr.CheckValid(); err != nil {
			return errors.Wrapf(err, "camera %d", i)
		}
		camIdx := len(doc.Cameras)
		doc.Cameras = append(doc.Cameras, gltfCamera{
			Type: "perspective",
			Perspective: gltfPerspective{
				AspectRatio: float64(intr.Width) * intr.Fy / (float64(intr.Height) * intr.Fx),
				YFov:        2 * math.Atan(float64(intr.Height)/(2*intr.Fy)),
				ZNear:       0.01,
			},
		})
		nodeIdx := len(doc.Nodes)
		doc.Nodes = append(doc.Nodes, gltfNode{
			Name:   fmt.Sprintf("camera_%02d", i),
			Camera: &camIdx,
			Matrix: cameraNodeMatrix(view),
		})
		sceneNodes = append(sceneNodes, nodeIdx)
	}
	doc.Scenes = []gltfScene{{Nodes: sceneNodes}}

	jsonBytes, err := json.Marshal(&doc)
	if err != nil {
		return errors.Wrap(err, "encoding gltf json")
	}
	return writeGLBContainer(out, jsonBytes, bin)
}

// cameraNodeMatrix returns the column-major camera-to-world node transform.
// The vision convention has the camera looking down +Z with +Y down; glTF
// cameras look down -Z with +Y up, so the local X axis is kept and Y, Z are
// negated.
func cameraNodeMatrix(view *scene.View) []float64 {
	rot := view.Pose.Rotation()
	center := view.Pose.Center()
	m := make([]float64, 16)
	for col := 0; col < 3; col++ {
		sign := 1.
		if col > 0 {
			sign = -1
		}
		// Camera-to-world rotation is R^T; its columns are R's rows.
		for row := 0; row < 3; row++ {
			m[col*4+row] = sign * rot.At(col, row)
		}
	}
	m[12], m[13], m[14] = center.X, center.Y, center.Z
	m[15] = 1
	return m
}

func writeGLBContainer(out io.Writer, jsonBytes, bin []byte) error {
	jsonPad := (4 - len(jsonBytes)%4) % 4
	binPad := (4 - len(bin)%4) % 4
	total := 12 + 8 + len(jsonBytes) + jsonPad
	if len(bin) > 0 {
		total += 8 + len(bin) + binPad
	}

	var buf bytes.Buffer
	header := []uint32{
		glbMagic, 2, uint32(total),
		uint32(len(jsonBytes) + jsonPad), glbChunkJSON,
	}
	for _, v := range header {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	buf.Write(jsonBytes)
	buf.Write(bytes.Repeat([]byte{' '}, jsonPad))
	// The BIN chunk is optional; a document with no buffer omits it.
	if len(bin) > 0 {
		if err := binary.Write(&buf, binary.LittleEndian, uint32(len(bin)+binPad)); err != nil {
			return err
		}
		if err := binary.Write(&buf, binary.LittleEndian, uint32(glbChunkBIN)); err != nil {
			return err
		}
		buf.Write(bin)
		buf.Write(make([]byte, binPad))
	}

	_, err := out.Write(buf.Bytes())
	return err
}

func exportGLB(in Input) (Artifact, error) {
	var buf bytes.Buffer
	if err := WriteGLB(&buf, in.Prediction, in.Cloud); err != nil {
		return Artifact{}, err
	}
	return Artifact{Name: "scene.glb", Data: buf.Bytes()}, nil
}
