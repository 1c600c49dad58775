//go:build !opencl

package main

import "errors"

type openCLRayTracer struct{}

func newOpenCLRayTracer(capacity int) (*openCLRayTracer, error) {
	return nil, errors.New("OpenCL support is not enabled; rebuild with -tags opencl")
}

func (t *openCLRayTracer) trace(p *traceParams, segmentsDirty bool) error {
	return errors.New("OpenCL tracer unavailable")
}

func (t *openCLRayTracer) Close() {}

func (t *openCLRayTracer) deviceName() string { return "" }
