package descriptors

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// Writer batches descriptor writes so they can be applied to a set in a single update
type Writer struct {
	writes []core1_0.WriteDescriptorSet
}

func (w *Writer) WriteBuffer(binding int, buffer core1_0.Buffer, size, offset int, descriptorType core1_0.DescriptorType) {
	w.writes = append(w.writes, core1_0.WriteDescriptorSet{
		DstBinding:     binding,
		DescriptorType: descriptorType,
		BufferInfo: []core1_0.DescriptorBufferInfo{
			{
				Buffer: buffer,
				Offset: offset,
				Range:  size,
			},
		},
	})
}

func (w *Writer) WriteImage(binding int, view core1_0.ImageView, sampler core1_0.Sampler, layout core1_0.ImageLayout, descriptorType core1_0.DescriptorType) {
	w.writes = append(w.writes, core1_0.WriteDescriptorSet{
		DstBinding:     binding,
		DescriptorType: descriptorType,
		ImageInfo: []core1_0.DescriptorImageInfo{
			{
				Sampler:     sampler,
				ImageView:   view,
				ImageLayout: layout,
			},
		},
	})
}

func (w *Writer) Clear() {
	w.writes = nil
}

// Len returns the number of pending writes
func (w *Writer) Len() int { return len(w.writes) }

// Update points every pending write at set and submits them to the device
func (w *Writer) Update(device core1_0.Device, set core1_0.DescriptorSet) error {
	for i := range w.writes {
		w.writes[i].DstSet = set
	}

	err := device.UpdateDescriptorSets(w.writes, nil)
	return errors.Wrapf(err, "update descriptor set with %d writes", len(w.writes))
}
