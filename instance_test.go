package vkr

import (
	"bytes"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	vk "github.com/vulkan-go/vulkan"
)

func TestDebugReportLevel(t *testing.T) {
	assert.Equal(t, "ERROR", debugReportLevel(vk.DebugReportFlags(vk.DebugReportErrorBit|vk.DebugReportWarningBit)))
	assert.Equal(t, "WARNING", debugReportLevel(vk.DebugReportFlags(vk.DebugReportWarningBit)))
	assert.Equal(t, "PERFORMANCE WARNING", debugReportLevel(vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit)))
	assert.Equal(t, "DEBUG", debugReportLevel(vk.DebugReportFlags(vk.DebugReportDebugBit)))
	assert.Equal(t, "INFORMATION", debugReportLevel(vk.DebugReportFlags(vk.DebugReportInformationBit)))
}

func TestLoggingDebugCallback(t *testing.T) {
	var buf bytes.Buffer
	callback := LoggingDebugCallback(log.New(&buf, "", 0))

	ret := callback(vk.DebugReportFlags(vk.DebugReportErrorBit), vk.DebugReportObjectTypeDevice,
		0, 0, 7, "Validation", "bad handle", nil)
	assert.Equal(t, vk.Bool32(vk.False), ret)
	assert.Equal(t, "ERROR: [Validation] Code 7 : bad handle\n", buf.String())
}

func TestAppLogger(t *testing.T) {
	assert.Same(t, log.Default(), (&App{}).logger())

	logger := log.New(&bytes.Buffer{}, "", 0)
	assert.Same(t, logger, (&App{Logger: logger}).logger())
}
