package main

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	vkr "github.com/Gaubbe/vk-ray-marcher"
	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"
	vk "github.com/vulkan-go/vulkan"
)

func newInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "List the Vulkan extensions, layers and devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showInfo(cmd.OutOrStdout())
		},
	}
}

func deviceTypeName(t vk.PhysicalDeviceType) string {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return "discrete GPU"
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return "integrated GPU"
	case vk.PhysicalDeviceTypeVirtualGpu:
		return "virtual GPU"
	case vk.PhysicalDeviceTypeCpu:
		return "CPU"
	}
	return "other"
}

func heapFlags(f vk.MemoryHeapFlagBits) string {
	var names []string
	if f&vk.MemoryHeapDeviceLocalBit != 0 {
		names = append(names, "device local")
	}
	if f&vk.MemoryHeapMultiInstanceBit != 0 {
		names = append(names, "multi instance")
	}
	if len(names) == 0 {
		return "host"
	}
	return strings.Join(names, ", ")
}

// supportedFeatures names the boolean features that are set
func supportedFeatures(features vk.PhysicalDeviceFeatures) []string {
	var names []string
	tf := reflect.TypeOf(features)
	vf := reflect.ValueOf(features)
	for i := 0; i < tf.NumField(); i++ {
		sf := tf.Field(i)
		if !sf.IsExported() || sf.Type != reflect.TypeOf(vk.Bool32(0)) {
			continue
		}
		if vk.Bool32(vf.Field(i).Uint()) == vk.True {
			names = append(names, sf.Name)
		}
	}
	return names
}

func list(w io.Writer, title string, items []string) {
	fmt.Fprintf(w, "%s\n", title)
	fmt.Fprintf(w, "-----------------------------\n")
	for _, item := range items {
		fmt.Fprintf(w, "\t%s\n", item)
	}
	fmt.Fprintln(w)
}

func showPhysicalDevice(w io.Writer, pd *vkr.PhysicalDevice) error {
	fmt.Fprintf(w, "%s (%s)\n", pd.DeviceName, deviceTypeName(pd.Type()))
	fmt.Fprintf(w, "-----------------------------\n")

	families, err := pd.QueueFamilies()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n\tQueue Families\n")
	for _, qf := range families {
		fmt.Fprintf(w, "\t\t%s\n", qf)
	}

	fmt.Fprintf(w, "\n\tFeatures\n")
	for _, name := range supportedFeatures(pd.VKPhysicalDeviceFeatures()) {
		fmt.Fprintf(w, "\t\t%s\n", name)
	}

	fmt.Fprintf(w, "\n\tHeaps\n")
	for i, h := range pd.MemoryHeaps() {
		size := datasize.ByteSize(h.Size)
		fmt.Fprintf(w, "\t\t%d\t%s\t%s\n", i, size.HumanReadable(), heapFlags(vk.MemoryHeapFlagBits(h.Flags)))
	}

	extensions, err := pd.SupportedExtensions()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n\tSupported Extensions\n")
	for _, ext := range extensions {
		fmt.Fprintf(w, "\t\t%s\n", ext)
	}
	fmt.Fprintln(w)
	return nil
}

func showInfo(w io.Writer) error {
	if err := vkr.InitializeForComputeOnly(); err != nil {
		return err
	}

	extensions, err := vkr.SupportedExtensions()
	if err != nil {
		return err
	}
	list(w, "Extensions", extensions)

	layers, err := vkr.SupportedLayers()
	if err != nil {
		return err
	}
	list(w, "Layers", layers)

	app := &vkr.App{Name: "vkray-info", EngineName: "vkray"}
	instance, err := app.CreateInstance()
	if err != nil {
		return err
	}
	defer instance.Destroy()

	devices, err := instance.PhysicalDevices()
	if err != nil {
		return err
	}
	for _, pd := range devices {
		if err := showPhysicalDevice(w, pd); err != nil {
			return err
		}
	}
	return nil
}
