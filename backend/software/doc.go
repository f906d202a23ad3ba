// Package software provides an in-memory implementation of
// gpucore.DeviceContext.
//
// Buffers are byte slices; copies, updates and mappings act on them
// directly, with the same map-mode and bounds rules a GPU driver enforces.
// Every state-changing call is appended to a recorder so tests and the
// probe tool can check exactly which native calls gorgon issued:
//
//	dev := software.New()
//	gc, _ := gorgon.NewGraphicsContext(dev)
//	...
//	for _, c := range dev.CallsOf(software.OpSetConstantBuffers) {
//		fmt.Println(c.Stage, c.Start, c.IDs)
//	}
//
// Importing the package registers the "software" backend.
package software
