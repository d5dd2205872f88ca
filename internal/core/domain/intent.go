package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Action identifies what the user asked the operator to do.
type Action string

const (
	ActionCreateResourceGroup  Action = "create_resource_group"
	ActionCreateStorageAccount Action = "create_storage_account"
	ActionCreateVirtualMachine Action = "create_virtual_machine"
	ActionUnrecognized         Action = "unrecognized"
)

// DefaultOSType is used when the model leaves os_type empty.
const DefaultOSType = "ubuntu"

// IntentInstructions is the system prompt sent with every user message.
const IntentInstructions = `You are an Azure Cloud automation parser.

Convert the user request into JSON format:

{
  "action": "create_resource_group | create_storage_account | create_virtual_machine",
  "name": "",
  "resource_group": "",
  "location": "",
  "os_type": ""
}

Only return valid JSON.`

// ErrIntentParse is matched by every ParseError.
var ErrIntentParse = errors.New("domain: malformed intent")

// actionAliases maps the tags the model may emit onto actions.
var actionAliases = map[string]Action{
	"create_resource_group":  ActionCreateResourceGroup,
	"create_rg":              ActionCreateResourceGroup,
	"create_storage_account": ActionCreateStorageAccount,
	"create_storage":         ActionCreateStorageAccount,
	"create_virtual_machine": ActionCreateVirtualMachine,
	"create_vm":              ActionCreateVirtualMachine,
}

// Intent is the structured form of one user request. The concrete types
// below are the only implementations.
type Intent interface {
	Action() Action
}

type CreateResourceGroup struct {
	Name     string
	Location string
}

type CreateStorageAccount struct {
	Name          string
	ResourceGroup string
	Location      string
}

type CreateVirtualMachine struct {
	Name          string
	ResourceGroup string
	Location      string
	OSType        string
}

// Unrecognized carries whatever action tag the model produced.
type Unrecognized struct {
	Tag string
}

func (CreateResourceGroup) Action() Action  { return ActionCreateResourceGroup }
func (CreateStorageAccount) Action() Action { return ActionCreateStorageAccount }
func (CreateVirtualMachine) Action() Action { return ActionCreateVirtualMachine }
func (Unrecognized) Action() Action         { return ActionUnrecognized }

// IntentObject is the wire shape the model is asked to return.
type IntentObject struct {
	Action        string `json:"action"`
	Name          string `json:"name"`
	ResourceGroup string `json:"resource_group"`
	Location      string `json:"location"`
	OSType        string `json:"os_type"`
}

// ParseError reports model output that could not be decoded as an IntentObject.
type ParseError struct {
	Content string
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("domain: malformed intent %q: %v", truncate(e.Content, 120), e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrIntentParse
}

// ParseIntent decodes the text returned by the model into an Intent.
// Field values are passed through as-is; only the shape is checked.
func ParseIntent(content string) (Intent, error) {
	body := stripCodeFence(content)
	if body == "" {
		return nil, &ParseError{Content: content, Err: errors.New("empty content")}
	}

	var obj *IntentObject
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		return nil, &ParseError{Content: content, Err: err}
	}
	if obj == nil {
		return nil, &ParseError{Content: content, Err: errors.New("not a JSON object")}
	}

	return obj.Intent(), nil
}

// Intent converts the wire shape into its typed variant.
func (o IntentObject) Intent() Intent {
	action, ok := actionAliases[strings.TrimSpace(o.Action)]
	if !ok {
		return Unrecognized{Tag: o.Action}
	}

	switch action {
	case ActionCreateResourceGroup:
		return CreateResourceGroup{Name: o.Name, Location: o.Location}
	case ActionCreateStorageAccount:
		return CreateStorageAccount{Name: o.Name, ResourceGroup: o.ResourceGroup, Location: o.Location}
	default:
		osType := o.OSType
		if osType == "" {
			osType = DefaultOSType
		}
		return CreateVirtualMachine{
			Name:          o.Name,
			ResourceGroup: o.ResourceGroup,
			Location:      o.Location,
			OSType:        osType,
		}
	}
}

// stripCodeFence removes a surrounding ```json ... ``` block if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
