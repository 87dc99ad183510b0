package export

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/depthfuse/depthfuse/scene"
)

type npzMeta struct {
	SceneID  string `json:"scene_id"`
	Units    string `json:"units"`
	NumViews int    `json:"num_views"`
}

// WriteNPZ archives the prediction's raw per-view arrays as a zip of NPY
// entries: depth_NN and conf_NN (height by width), pose_NN (4x4
// world-to-camera), and intrinsics_NN (3x3), plus a meta.json naming the
// scene and its units. Entry timestamps are zeroed so identical inputs
// produce identical bytes.
func WriteNPZ(out io.Writer, pred *scene.Prediction) error {
	zw := zip.NewWriter(out)

	for i, view := range pred.Views {
		if err := view.CheckValid(); err != nil {
			return errors.Wrapf(err, "view %d", i)
		}
		w, h := view.Intrinsics.Width, view.Intrinsics.Height
		depth := mat.NewDense(h, w, nil)
		conf := mat.NewDense(h, w, nil)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				depth.Set(y, x, view.Depth.GetDepth(x, y))
				conf.Set(y, x, view.Conf.Get(x, y))
			}
		}
		entries := []struct {
			name string
			m    *mat.Dense
		}{
			{fmt.Sprintf("depth_%02d", i), depth},
			{fmt.Sprintf("conf_%02d", i), conf},
			{fmt.Sprintf("pose_%02d", i), view.Pose.Matrix4()},
			{fmt.Sprintf("intrinsics_%02d", i), view.Intrinsics.Matrix()},
		}
		for _, e := range entries {
			if err := writeNPZEntry(zw, e.name, e.m); err != nil {
				return errors.Wrapf(err, "view %d", i)
			}
		}
	}

	metaBytes, err := json.Marshal(npzMeta{
		SceneID:  pred.SceneID,
		Units:    pred.Units.String(),
		NumViews: len(pred.Views),
	})
	if err != nil {
		return errors.Wrap(err, "encoding npz metadata")
	}
	mw, err := zw.CreateHeader(&zip.FileHeader{Name: "meta.json", Method: zip.Deflate})
	if err != nil {
		return err
	}
	if _, err := mw.Write(metaBytes); err != nil {
		return err
	}
	return zw.Close()
}

func writeNPZEntry(zw *zip.Writer, name string, m *mat.Dense) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name + ".npy", Method: zip.Deflate})
	if err != nil {
		return err
	}
	return npyio.Write(w, m)
}

func exportNPZ(in Input) (Artifact, error) {
	var buf bytes.Buffer
	if err := WriteNPZ(&buf, in.Prediction); err != nil {
		return Artifact{}, err
	}
	return Artifact{Name: "scene.npz", Data: buf.Bytes()}, nil
}
