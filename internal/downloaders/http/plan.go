package rgethttp

// Plan decides how to fetch a file given what is already on disk. It does no
// I/O. Resumes always use a single sequential stream so the appended bytes
// extend the existing prefix without holes.
func Plan(localSize int64, caps Capabilities, resume bool, threads int) ExecutionPlan {
	if resume && localSize > 0 {
		switch {
		case caps.KnownLength() && localSize == caps.Length:
			return ExecutionPlan{Mode: ModeNothing, Reason: "local file already complete"}
		case !caps.AcceptsRanges:
			plan := freshPlan(caps, threads)
			plan.Reason = "server does not support ranges, restarting"
			return plan
		case !caps.KnownLength() || localSize < caps.Length:
			end := int64(-1)
			if caps.KnownLength() {
				end = caps.Length - 1
			}
			return ExecutionPlan{
				Mode:   ModeResume,
				Ranges: []ByteRange{{Start: localSize, End: end}},
				Reason: "resuming partial file",
			}
		default:
			// remote shrank or changed; local bytes cannot be a prefix of it
			plan := freshPlan(caps, threads)
			plan.Reason = "local file larger than remote, restarting"
			return plan
		}
	}
	return freshPlan(caps, threads)
}

func freshPlan(caps Capabilities, threads int) ExecutionPlan {
	if caps.AcceptsRanges && caps.Length > 0 && threads > 1 {
		return ExecutionPlan{
			Mode:     ModePartitioned,
			Ranges:   Partition(caps.Length, threads),
			Truncate: true,
			Reason:   "fresh partitioned download",
		}
	}
	return singlePlan("fresh single-stream download")
}

func singlePlan(reason string) ExecutionPlan {
	return ExecutionPlan{
		Mode:     ModeSingle,
		Ranges:   []ByteRange{{Start: 0, End: -1}},
		Truncate: true,
		Reason:   reason,
	}
}

// Partition splits [0, length) into n contiguous inclusive ranges. n is
// clipped to [1, length] so no range is empty; the last range absorbs the
// division remainder.
func Partition(length int64, n int) []ByteRange {
	if length <= 0 {
		return nil
	}
	if n < 1 {
		n = 1
	}
	if int64(n) > length {
		n = int(length)
	}
	size := length / int64(n)
	ranges := make([]ByteRange, 0, n)
	for i := 0; i < n; i++ {
		start := int64(i) * size
		end := start + size - 1
		if i == n-1 {
			end = length - 1
		}
		ranges = append(ranges, ByteRange{Start: start, End: end})
	}
	return ranges
}
