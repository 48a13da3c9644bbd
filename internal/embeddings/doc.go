// Package embeddings turns policy passages and retrieval queries into vectors.
//
// Two providers are available. FastEmbed runs a local ONNX model (BGE small
// by default) and requires a cgo build; the hash provider is a dependency-free
// feature-hashing embedder used by tests, the CLI's offline mode and nocgo
// builds. NewProvider selects one from Config and Instrument adds OTEL
// metrics around any Provider.
package embeddings
