//go:build opencl

package main

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
)

// segStride is the number of float32 lanes one segment occupies in the device
// buffer: start, end, normal, the five material coefficients, padded to 12.
const segStride = 12

// hitStride lanes per device hit record: delay, energy, bin, x, y, pad.
const hitStride = 6

const gpuVerifyTolerance = 1e-5

const rayKernelSource = `
inline ulong mix_seed(ulong x)
{
    x += 0x9e3779b97f4a7c15UL;
    x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9UL;
    x = (x ^ (x >> 27)) * 0x94d049bb133111ebUL;
    return x ^ (x >> 31);
}

inline float frand(ulong* state)
{
    ulong x = *state;
    x ^= x >> 12;
    x ^= x << 25;
    x ^= x >> 27;
    *state = x;
    return (float)((x * 0x2545F4914F6CDD1DUL) >> 40) / 16777216.0f;
}

inline float2 rotate_vec(float2 v, float angle)
{
    float s = sin(angle);
    float c = cos(angle);
    return (float2)(v.x * c - v.y * s, v.x * s + v.y * c);
}

inline float2 reflect_dir(float2 d, float2 n)
{
    return d - 2.0f * dot(d, n) * n;
}

__kernel void trace_rays(
    const int ray_count,
    const int max_bounces,
    const int seg_count,
    const int capacity,
    const float sx,
    const float sy,
    const float lx,
    const float ly,
    const float listener_radius,
    const float source_radius,
    const float delay_scale,
    const float hit_gain,
    const float min_energy,
    const int seed_lo,
    const int seed_hi,
    __global const float* segs,
    __global const int* bins,
    __global float* hits,
    volatile __global int* hit_count)
{
    int gid = get_global_id(0);
    if (gid >= ray_count) {
        return;
    }
    ulong tick_seed = ((ulong)(uint)seed_hi << 32) | (ulong)(uint)seed_lo;
    ulong state = mix_seed(tick_seed ^ ((ulong)gid * 0x9e3779b97f4a7c15UL));
    if (state == 0UL) {
        state = 0x2545F4914F6CDD1DUL;
    }

    float angle = frand(&state) * 6.2831853f;
    float2 dir = (float2)(cos(angle), sin(angle));
    float jr = source_radius * sqrt(frand(&state));
    float ja = frand(&state) * 6.2831853f;
    float2 origin = (float2)(sx + cos(ja) * jr, sy + sin(ja) * jr);
    float2 listener = (float2)(lx, ly);

    float energy = 1.0f;
    int bin = bins[gid];
    float path_len = 0.0f;

    for (int bounce = 0; ; bounce++) {
        float best_t = INFINITY;
        int best = -1;
        for (int s = 0; s < seg_count; s++) {
            int base = s * 12;
            float2 a = (float2)(segs[base], segs[base + 1]);
            float2 b = (float2)(segs[base + 2], segs[base + 3]);
            float2 edge = b - a;
            float2 perp = (float2)(-dir.y, dir.x);
            float denom = dot(edge, perp);
            if (fabs(denom) < 1e-9f) {
                continue;
            }
            float2 rel = origin - a;
            float u = dot(rel, perp) / denom;
            if (u < 0.0f || u > 1.0f) {
                continue;
            }
            float t = (edge.x * rel.y - edge.y * rel.x) / denom;
            if (t <= 1e-4f || t >= best_t) {
                continue;
            }
            best_t = t;
            best = s;
        }
        if (best < 0) {
            return;
        }

        float cap_t = clamp(dot(listener - origin, dir), 0.0f, best_t);
        float2 cap_point = origin + dir * cap_t;
        if (length(cap_point - listener) <= listener_radius) {
            int idx = atomic_inc(hit_count);
            if (idx < capacity) {
                int out = idx * 6;
                hits[out] = (path_len + cap_t) * delay_scale;
                hits[out + 1] = energy * hit_gain;
                hits[out + 2] = (float)bin;
                hits[out + 3] = cap_point.x;
                hits[out + 4] = cap_point.y;
                hits[out + 5] = 0.0f;
            }
        }
        if (bounce >= max_bounces) {
            return;
        }

        int mbase = best * 12;
        float2 normal = (float2)(segs[mbase + 4], segs[mbase + 5]);
        float absorption = segs[mbase + 6];
        float scattering = segs[mbase + 7];
        float transmission = segs[mbase + 8];
        float ior = segs[mbase + 9];
        float damping = segs[mbase + 10];

        path_len += best_t;
        float2 point = origin + dir * best_t;

        if (frand(&state) < absorption) {
            return;
        }
        float p_transmit = 0.0f;
        float remainder = 1.0f - absorption;
        if (remainder > 0.0f) {
            p_transmit = fmin(transmission / remainder, 1.0f);
        }
        if (frand(&state) < p_transmit) {
            float2 n = normal;
            float cos_i = -dot(dir, n);
            if (cos_i < 0.0f) {
                n = -n;
                cos_i = -cos_i;
            }
            float eta = 1.0f / (1.0f + ior);
            float sin_t2 = eta * eta * (1.0f - cos_i * cos_i);
            if (sin_t2 > 1.0f) {
                dir = reflect_dir(dir, n);
            } else {
                float cos_t = sqrt(1.0f - sin_t2);
                dir = normalize(eta * dir + (eta * cos_i - cos_t) * n);
            }
        } else {
            float2 n = normal;
            if (dot(dir, n) > 0.0f) {
                n = -n;
            }
            float2 mirror = reflect_dir(dir, n);
            if (scattering <= 0.0f) {
                dir = mirror;
            } else {
                float2 diffuse = rotate_vec(n, (frand(&state) - 0.5f) * 3.14159265f);
                float2 out_dir = mirror * (1.0f - scattering) + diffuse * scattering;
                float l = length(out_dir);
                if (l > 1e-9f && dot(out_dir / l, n) > 0.0f) {
                    dir = out_dir / l;
                } else {
                    dir = mirror;
                }
            }
        }
        energy *= 1.0f - damping;
        if (energy < min_energy) {
            return;
        }
        origin = point + dir * 1e-4f;
    }
}`

// openCLRayTracer runs the per-ray bounce kernel on an OpenCL device. Hits
// land in a device buffer through an atomic counter and are read back to the
// host hit collection after each tick.
type openCLRayTracer struct {
	context    *cl.Context
	queue      *cl.CommandQueue
	program    *cl.Program
	kernel     *cl.Kernel
	segBuf     *cl.MemObject
	binBuf     *cl.MemObject
	hitBuf     *cl.MemObject
	countBuf   *cl.MemObject
	capacity   int
	rayCount   int
	segCap     int
	segCount   int
	segScratch []float32
	hitScratch []float32
	device     string
	verify     bool
}

func newOpenCLRayTracer(capacity int) (*openCLRayTracer, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	if len(platforms) == 0 {
		return nil, errors.New("no OpenCL platforms available; ensure a vendor driver is installed and detected by `clinfo`")
	}
	var device *cl.Device
	for _, p := range platforms {
		devices, derr := p.GetDevices(cl.DeviceTypeGPU)
		if derr != nil && derr != cl.ErrDeviceNotFound {
			continue
		}
		if len(devices) > 0 {
			device = devices[0]
			break
		}
	}
	if device == nil {
		for _, p := range platforms {
			devices, derr := p.GetDevices(cl.DeviceTypeCPU)
			if derr != nil && derr != cl.ErrDeviceNotFound {
				continue
			}
			if len(devices) > 0 {
				device = devices[0]
				break
			}
		}
	}
	if device == nil {
		return nil, errors.New("no suitable OpenCL devices found")
	}

	context, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL context: %w", err)
	}
	queue, err := context.CreateCommandQueue(device, 0)
	if err != nil {
		context.Release()
		return nil, fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	program, err := context.CreateProgramWithSource([]string{rayKernelSource})
	if err != nil {
		queue.Release()
		context.Release()
		return nil, fmt.Errorf("creating OpenCL program: %w", err)
	}
	if err := program.BuildProgram([]*cl.Device{device}, ""); err != nil {
		program.Release()
		queue.Release()
		context.Release()
		if buildErr, ok := err.(cl.BuildError); ok {
			return nil, fmt.Errorf("building OpenCL program: %s", string(buildErr))
		}
		return nil, fmt.Errorf("building OpenCL program: %w", err)
	}
	kernel, err := program.CreateKernel("trace_rays")
	if err != nil {
		program.Release()
		queue.Release()
		context.Release()
		return nil, fmt.Errorf("creating ray kernel: %w", err)
	}

	tracer := &openCLRayTracer{
		context:    context,
		queue:      queue,
		program:    program,
		kernel:     kernel,
		capacity:   capacity,
		rayCount:   *rayCountFlag,
		hitScratch: make([]float32, capacity*hitStride),
		device:     device.Name(),
		verify:     verifyGPUSyncFlag != nil && *verifyGPUSyncFlag,
	}

	tracer.binBuf, err = context.CreateEmptyBuffer(cl.MemReadOnly, tracer.rayCount*int(unsafe.Sizeof(int32(0))))
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("allocating bin buffer: %w", err)
	}
	tracer.hitBuf, err = context.CreateEmptyBuffer(cl.MemWriteOnly, capacity*hitStride*int(unsafe.Sizeof(float32(0))))
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("allocating hit buffer: %w", err)
	}
	tracer.countBuf, err = context.CreateEmptyBuffer(cl.MemReadWrite, int(unsafe.Sizeof(int32(0))))
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("allocating hit counter: %w", err)
	}
	return tracer, nil
}

// packSegments flattens the boundary snapshot into the device layout.
func (t *openCLRayTracer) packSegments(segs []boundarySegment) []float32 {
	need := len(segs) * segStride
	if cap(t.segScratch) < need {
		t.segScratch = make([]float32, need)
	}
	t.segScratch = t.segScratch[:need]
	for i := range segs {
		s := &segs[i]
		base := i * segStride
		t.segScratch[base] = float32(s.start.X())
		t.segScratch[base+1] = float32(s.start.Y())
		t.segScratch[base+2] = float32(s.end.X())
		t.segScratch[base+3] = float32(s.end.Y())
		t.segScratch[base+4] = float32(s.normal.X())
		t.segScratch[base+5] = float32(s.normal.Y())
		t.segScratch[base+6] = float32(s.mat.absorption)
		t.segScratch[base+7] = float32(s.mat.scattering)
		t.segScratch[base+8] = float32(s.mat.transmission)
		t.segScratch[base+9] = float32(s.mat.iorFactor)
		t.segScratch[base+10] = float32(s.mat.damping)
		t.segScratch[base+11] = 0
	}
	return t.segScratch
}

// uploadSegments rewrites the device segment buffer, reallocating when the
// snapshot outgrew the previous allocation.
func (t *openCLRayTracer) uploadSegments(segs []boundarySegment) error {
	packed := t.packSegments(segs)
	if t.segBuf == nil || len(segs) > t.segCap {
		if t.segBuf != nil {
			t.segBuf.Release()
			t.segBuf = nil
		}
		buf, err := t.context.CreateEmptyBuffer(cl.MemReadOnly, len(packed)*int(unsafe.Sizeof(float32(0))))
		if err != nil {
			return fmt.Errorf("allocating segment buffer: %w", err)
		}
		t.segBuf = buf
		t.segCap = len(segs)
	}
	if _, err := t.queue.EnqueueWriteBufferFloat32(t.segBuf, false, 0, packed, nil); err != nil {
		return fmt.Errorf("writing segment buffer: %w", err)
	}
	t.segCount = len(segs)
	if t.verify {
		if err := t.verifySegmentUpload(packed); err != nil {
			return err
		}
	}
	return nil
}

func (t *openCLRayTracer) verifySegmentUpload(host []float32) error {
	scratch := make([]float32, len(host))
	if _, err := t.queue.EnqueueReadBufferFloat32(t.segBuf, true, 0, scratch, nil); err != nil {
		return fmt.Errorf("reading segment buffer for verification: %w", err)
	}
	for i, hv := range host {
		if diff := math.Abs(float64(scratch[i] - hv)); diff > gpuVerifyTolerance {
			return fmt.Errorf("segment buffer mismatch at index %d: device=%f host=%f", i, scratch[i], hv)
		}
	}
	return nil
}

// trace launches one tick of rays on the device and reads the hit collection
// back into the host buffer. The readback is blocking, so the hit collection
// is complete when trace returns.
func (t *openCLRayTracer) trace(p *traceParams, segmentsDirty bool) error {
	if segmentsDirty || t.segBuf == nil || t.segCount != len(p.segments) {
		if err := t.uploadSegments(p.segments); err != nil {
			return err
		}
	}
	if len(p.bins) > 0 {
		byteLen := len(p.bins) * int(unsafe.Sizeof(int32(0)))
		if _, err := t.queue.EnqueueWriteBuffer(t.binBuf, false, 0, byteLen, unsafe.Pointer(&p.bins[0]), nil); err != nil {
			return fmt.Errorf("writing bin buffer: %w", err)
		}
	}
	zero := int32(0)
	if _, err := t.queue.EnqueueWriteBuffer(t.countBuf, false, 0, int(unsafe.Sizeof(zero)), unsafe.Pointer(&zero), nil); err != nil {
		return fmt.Errorf("resetting hit counter: %w", err)
	}

	if err := t.kernel.SetArgs(
		int32(p.rayCount),
		int32(p.maxBounces),
		int32(t.segCount),
		int32(t.capacity),
		float32(p.source.X()),
		float32(p.source.Y()),
		float32(p.listener.X()),
		float32(p.listener.Y()),
		float32(p.listenerRadius),
		float32(emitterRad),
		float32(metersPerCell/p.speedOfSound),
		p.hitGain,
		float32(minRayEnergy),
		int32(p.tickSeed),
		int32(p.tickSeed>>32),
		t.segBuf,
		t.binBuf,
		t.hitBuf,
		t.countBuf,
	); err != nil {
		return fmt.Errorf("setting ray kernel arguments: %w", err)
	}
	if _, err := t.queue.EnqueueNDRangeKernel(t.kernel, nil, []int{p.rayCount}, nil, nil); err != nil {
		return fmt.Errorf("enqueueing ray kernel: %w", err)
	}

	var produced int32
	if _, err := t.queue.EnqueueReadBuffer(t.countBuf, true, 0, int(unsafe.Sizeof(produced)), unsafe.Pointer(&produced), nil); err != nil {
		return fmt.Errorf("reading hit count: %w", err)
	}
	stored := int(produced)
	if stored > t.capacity {
		stored = t.capacity
	}
	if stored > 0 {
		if _, err := t.queue.EnqueueReadBufferFloat32(t.hitBuf, true, 0, t.hitScratch[:stored*hitStride], nil); err != nil {
			return fmt.Errorf("reading hit buffer: %w", err)
		}
	}
	for i := 0; i < stored; i++ {
		base := i * hitStride
		p.hits.hits[i] = rayHit{
			timeDelay:    t.hitScratch[base],
			energy:       t.hitScratch[base+1],
			frequencyBin: int32(t.hitScratch[base+2]),
			hitPoint:     [2]float32{t.hitScratch[base+3], t.hitScratch[base+4]},
		}
	}
	// Keep the raw produced count so dropped() still reports overflow.
	p.hits.cursor.Store(int64(produced))
	return nil
}

func (t *openCLRayTracer) Close() {
	if t.countBuf != nil {
		t.countBuf.Release()
		t.countBuf = nil
	}
	if t.hitBuf != nil {
		t.hitBuf.Release()
		t.hitBuf = nil
	}
	if t.binBuf != nil {
		t.binBuf.Release()
		t.binBuf = nil
	}
	if t.segBuf != nil {
		t.segBuf.Release()
		t.segBuf = nil
	}
	if t.kernel != nil {
		t.kernel.Release()
		t.kernel = nil
	}
	if t.program != nil {
		t.program.Release()
		t.program = nil
	}
	if t.queue != nil {
		t.queue.Release()
		t.queue = nil
	}
	if t.context != nil {
		t.context.Release()
		t.context = nil
	}
}

func (t *openCLRayTracer) deviceName() string {
	return t.device
}
