package koala

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/koala/pkg/noisesuppression"
)

// TestEngine runs against a real engine when KOALA_ACCESS_KEY and
// KOALA_ROOT point to a valid access key and a directory with the shipped
// library and model.
func TestEngine(t *testing.T) {
	accessKey := os.Getenv("KOALA_ACCESS_KEY")
	root := os.Getenv("KOALA_ROOT")
	if accessKey == "" || root == "" {
		t.Skip("KOALA_ACCESS_KEY and KOALA_ROOT are not set")
	}
	ctx := context.Background()

	k, err := Create(ctx, Options{
		AccessKey: accessKey,
		Root:      root,
	})
	require.NoError(t, err)
	defer k.Close()

	require.Greater(t, k.FrameLength(), uint(0))
	require.NotEmpty(t, k.Version())

	devices, err := k.ListHardwareDevices(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, devices)
	for _, device := range devices {
		require.NotEmpty(t, device)
	}

	transformer := noisesuppression.NewStreamingBlockTransformer(k)
	result, err := transformer.ProcessComplete(ctx, make([]int16, 3*k.FrameLength()+17))
	require.NoError(t, err)
	require.Len(t, result, int(3*k.FrameLength()+17))

	var energy float64
	for _, v := range result {
		energy += float64(v) * float64(v) / (32768 * 32768)
	}
	require.Less(t, energy/float64(len(result)), 1e-4)

	_, err = transformer.Process(ctx, make([]int16, k.FrameLength()+1))
	require.ErrorIs(t, err, noisesuppression.ErrInvalidArgument)
}
