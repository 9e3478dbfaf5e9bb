// Package builtin provides the core node builders for YAML-defined pipelines:
// echo, delay, template, transform and router nodes, plus a gateway-backed
// generate node for LLM calls.
package builtin

import (
	"github.com/agentstation/loom/llm"
	"github.com/agentstation/loom/yaml"
)

// RegisterCore registers the core builders (echo, delay, template, transform,
// router) on the loader.
func RegisterCore(loader *yaml.Loader) {
	loader.Register("echo", EchoBuilder())
	loader.Register("delay", DelayBuilder())
	loader.Register("template", TemplateBuilder())
	loader.Register("transform", TransformBuilder())
	loader.Register("router", RouterBuilder())
}

// RegisterGenerate registers the "generate" builder backed by the given
// gateway. Separate from RegisterCore so pipelines without LLM nodes need no
// gateway.
func RegisterGenerate(loader *yaml.Loader, gateway *llm.Gateway) {
	loader.Register("generate", GenerateBuilder(gateway))
}
