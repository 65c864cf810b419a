package gpu

import (
	"io"
	"testing"

	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func TestBufferWrite(t *testing.T) {
	buffer := &Buffer{
		Size:   8,
		Memory: MemoryUsageCPUOnly,
		Mapped: make([]byte, 8),
	}

	require.NoError(t, buffer.Write(2, []byte{1, 2, 3}))
	require.Equal(t, []byte{0, 0, 1, 2, 3, 0, 0, 0}, buffer.Mapped)

	require.Error(t, buffer.Write(6, []byte{1, 2, 3}))
	require.Error(t, buffer.Write(-1, []byte{1}))
}

func TestBufferWrite_Unmapped(t *testing.T) {
	buffer := &Buffer{
		Size:   8,
		Memory: MemoryUsageGPUOnly,
	}

	err := buffer.Write(0, []byte{1})
	require.ErrorContains(t, err, "MemoryUsageGPUOnly")
}

func TestPrintStats(t *testing.T) {
	c := &Context{
		logger:        slog.New(slog.NewJSONHandler(io.Discard)),
		deviceName:    "Test GPU",
		queueFamilies: QueueFamilies{Graphics: 0, Present: 1},
		liveBuffers:   3,
		liveImages:    1,
	}

	writer := jwriter.NewWriter()
	obj := writer.Object()
	c.PrintStats(&obj)
	obj.End()

	require.JSONEq(t, `{
		"Device": "Test GPU",
		"QueueFamilies": {"Graphics": 0, "Present": 1},
		"LiveResources": {"Buffers": 3, "Images": 1}
	}`, string(writer.Bytes()))
}
