// Package snapshot persists store values to a Sink.
//
// A Persister subscribes to a store and writes its value through a
// dependency-gated effect, so a SetState that leaves the value unchanged
// does not touch the sink:
//
//	sink, _ := snapshot.NewDirSink("./data")
//	p := snapshot.Persist(ctx, counter, sink, snapshot.Key("counters/", "hits"))
//	defer p.Close()
//
// DirSink writes files under a directory. S3Sink writes objects to an S3
// bucket through aws-sdk-go-v2.
package snapshot
