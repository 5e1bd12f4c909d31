package handler

import (
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/contract"
	promptx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/prompt"
	toolx "github.com/tanpawarit/Chative-Voice-Commerce-Router/agent/tool"
)

type registryImpl struct {
	catalog contractx.Handler
	cart    contractx.Handler
	order   contractx.Handler
	general contractx.Handler
}

func (r *registryImpl) Catalog() contractx.Handler {
	return r.catalog
}

func (r *registryImpl) Cart() contractx.Handler {
	return r.cart
}

func (r *registryImpl) Order() contractx.Handler {
	return r.order
}

func (r *registryImpl) General() contractx.Handler {
	return r.general
}

type registryOptions struct {
	allowlists map[contractx.TaskType][]toolx.Name
	prompts    *promptx.PromptSet
}

type Option func(*registryOptions)

// WithAllowlist overrides the tools a task handler may call.
func WithAllowlist(task contractx.TaskType, names ...toolx.Name) Option {
	return func(o *registryOptions) {
		o.allowlists[task] = append([]toolx.Name(nil), names...)
	}
}

func WithPrompts(p promptx.PromptSet) Option {
	return func(o *registryOptions) {
		o.prompts = &p
	}
}

func NewRegistry(tools toolx.Invoker, opts ...Option) (contractx.Registry, error) {
	if tools == nil {
		return nil, fmt.Errorf("%w: tool gateway is required", contractx.ErrValidation)
	}
	o := registryOptions{allowlists: make(map[contractx.TaskType][]toolx.Name)}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	prompts := promptx.LoadPromptSet()
	if o.prompts != nil {
		prompts = *o.prompts
	}
	help := strings.TrimSpace(prompts.Help)
	if help == "" {
		return nil, fmt.Errorf("%w: help", contractx.ErrPromptMissing)
	}

	allowed := func(task contractx.TaskType) []toolx.Name {
		if names, ok := o.allowlists[task]; ok {
			return names
		}
		return toolx.ForTask(task)
	}
	newBase := func(task contractx.TaskType) base {
		return base{task: task, tools: tools, allowed: allowed(task)}
	}

	return &registryImpl{
		catalog: &catalogHandler{base: newBase(contractx.TaskCatalogSearch)},
		cart:    &cartHandler{base: newBase(contractx.TaskCart)},
		order:   &orderHandler{base: newBase(contractx.TaskOrder)},
		general: &generalHandler{help: help},
	}, nil
}
