package pipeline

import (
	"encoding/binary"
	"io/fs"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/core/v2/core1_0"
)

const spirvMagic uint32 = 0x07230203

var (
	// ErrShaderNotFound wraps failures to open a shader binary
	ErrShaderNotFound = errors.New("shader file not found")
	// ErrInvalidShader is returned for files that are not SPIR-V
	ErrInvalidShader = errors.New("invalid SPIR-V binary")
)

// DecodeSPIRV converts raw shader bytes into SPIR-V words, validating the length and magic number
func DecodeSPIRV(data []byte) ([]uint32, error) {
	if len(data) == 0 || len(data)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidShader, "length %d is not a positive multiple of 4", len(data))
	}

	code := make([]uint32, len(data)/4)
	for i := range code {
		code[i] = binary.LittleEndian.Uint32(data[i*4:])
	}

	if code[0] != spirvMagic {
		return nil, errors.Wrapf(ErrInvalidShader, "magic number is %#08x", code[0])
	}

	return code, nil
}

// ReadShaderFile loads a compiled SPIR-V binary from disk
func ReadShaderFile(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, errors.Wrapf(ErrShaderNotFound, "%s", path)
	} else if err != nil {
		return nil, errors.Wrapf(err, "read shader %s", path)
	}

	code, err := DecodeSPIRV(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode shader %s", path)
	}
	return code, nil
}

// LoadShaderModule reads a SPIR-V file and creates a shader module from it. The caller destroys
// the module once every pipeline using it has been built.
func LoadShaderModule(device core1_0.Device, path string) (core1_0.ShaderModule, error) {
	code, err := ReadShaderFile(path)
	if err != nil {
		return nil, err
	}

	module, _, err := device.CreateShaderModule(nil, core1_0.ShaderModuleCreateInfo{
		Code: code,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "create shader module from %s", path)
	}
	return module, nil
}

// NewLayout creates a pipeline layout from descriptor set layouts and push constant ranges
func NewLayout(device core1_0.Device, setLayouts []core1_0.DescriptorSetLayout, pushConstants []core1_0.PushConstantRange) (core1_0.PipelineLayout, error) {
	layout, _, err := device.CreatePipelineLayout(nil, core1_0.PipelineLayoutCreateInfo{
		SetLayouts:         setLayouts,
		PushConstantRanges: pushConstants,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create pipeline layout")
	}
	return layout, nil
}
