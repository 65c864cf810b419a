package descriptors

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

// LayoutBuilder collects bindings for a descriptor set layout
type LayoutBuilder struct {
	bindings []core1_0.DescriptorSetLayoutBinding
}

// AddBinding adds a single-descriptor binding of the given type
func (b *LayoutBuilder) AddBinding(binding int, descriptorType core1_0.DescriptorType) *LayoutBuilder {
	b.bindings = append(b.bindings, core1_0.DescriptorSetLayoutBinding{
		Binding:         binding,
		DescriptorType:  descriptorType,
		DescriptorCount: 1,
	})
	return b
}

func (b *LayoutBuilder) Clear() {
	b.bindings = nil
}

// Bindings returns the bindings added so far, with stages applied to every one of them
func (b *LayoutBuilder) Bindings(stages core1_0.ShaderStageFlags) []core1_0.DescriptorSetLayoutBinding {
	bindings := make([]core1_0.DescriptorSetLayoutBinding, len(b.bindings))
	for i, binding := range b.bindings {
		binding.StageFlags |= stages
		bindings[i] = binding
	}
	return bindings
}

// Build creates a layout visible to the provided shader stages
func (b *LayoutBuilder) Build(device core1_0.Device, stages core1_0.ShaderStageFlags, flags core1_0.DescriptorSetLayoutCreateFlags) (core1_0.DescriptorSetLayout, error) {
	layout, _, err := device.CreateDescriptorSetLayout(nil, core1_0.DescriptorSetLayoutCreateInfo{
		Flags:    flags,
		Bindings: b.Bindings(stages),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create descriptor set layout with %d bindings", len(b.bindings))
	}
	return layout, nil
}
