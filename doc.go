// Package cluster implements registry-coordinated process membership and
// deterministic worker-index allocation: a set of independently started
// processes discover each other through a shared registry (an etcd-style
// directory service or a relational database), maintain liveness with
// lease-based heartbeats, and are each assigned a contiguous, non-overlapping
// range of worker indexes out of a cluster-wide total — without running any
// consensus protocol among themselves.
//
// A Cluster is built with New, configured with the With* options or the
// Set* methods while it is in its "new" state, and brought into the
// cluster with Join or JoinPassive. Two back-ends are supported: a static
// back-end for operators who already know the full membership ahead of
// time (no network access required), and a dynamic back-end that talks to
// a registry.Adapter. Dynamic membership runs two independent loops for the
// life of the join (a passive join runs only the second): a ping loop that
// refreshes this instance's lease, and a
// watch loop that reacts to membership changes by recomputing and
// publishing a fresh worker-index assignment.
package cluster
