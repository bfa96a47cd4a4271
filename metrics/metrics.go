// Package metrics holds the process-wide Prometheus collectors every
// layer above L0 reports through (SPEC_FULL §2, ambient L(-1)): message
// counts, voxel throughput, donor-search latency. Nothing in this
// package can fail a run — a scrape that never happens doesn't change
// what the assembler computes.
/*
 * Copyright (c) 2018-2021, NVIDIA CORPORATION. All rights reserved.
 */
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// FramesSent/FramesReceived count PostMan frames (spec.md §4.4),
	// labeled by message_type so a stuck Fragment/Receptors exchange
	// shows up distinctly from routine traffic.
	FramesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yoga",
		Subsystem: "postman",
		Name:      "frames_sent_total",
		Help:      "PostMan frames pushed to a peer, by message type.",
	}, []string{"message_type"})

	FramesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "yoga",
		Subsystem: "postman",
		Name:      "frames_received_total",
		Help:      "PostMan frames drained from the inbound socket, by message type.",
	}, []string{"message_type"})

	// VoxelsProcessed counts WorkVoxels run through donor-finding.
	VoxelsProcessed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "yoga",
		Subsystem: "assembler",
		Name:      "voxels_processed_total",
		Help:      "Work voxels that completed donor-finding on this rank.",
	})

	// DonorSearchSeconds observes per-voxel donor-search latency.
	DonorSearchSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "yoga",
		Subsystem: "assembler",
		Name:      "donor_search_seconds",
		Help:      "Wall time spent running donor-finding over one voxel.",
		Buckets:   prometheus.DefBuckets,
	})

	// ReceptorsEmitted counts receptors that resolved to a donor from a
	// component other than their own.
	ReceptorsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "yoga",
		Subsystem: "assembler",
		Name:      "receptors_emitted_total",
		Help:      "Receptors resolved to a donor from another component.",
	})

	// HolesEmitted counts receptors that resolved to no donor (iblank 0):
	// none of their candidates came from another component.
	HolesEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "yoga",
		Subsystem: "assembler",
		Name:      "holes_total",
		Help:      "Receptors with no candidate donor from another component.",
	})
)

// Registry is the collector registry the optional status endpoint
// (postman's fasthttp mount, SPEC_FULL §4.4) serves. A caller that never
// mounts it just never scrapes it; nothing here is load-bearing for
// correctness.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(FramesSent, FramesReceived, VoxelsProcessed, DonorSearchSeconds, ReceptorsEmitted, HolesEmitted)
}
