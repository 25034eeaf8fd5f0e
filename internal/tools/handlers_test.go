package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/proxmoxmcp/proxmox-mcp/internal/payload"
)

func TestCreateTemplateRequiresStoppedVM(t *testing.T) {
	api := &fakeAPI{
		get: func(path string, _ url.Values) (payload.Payload, error) {
			return obj(map[string]interface{}{"status": "running"}), nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "create_template", map[string]interface{}{
		"node": "pve1",
		"vmid": "100",
	})
	if env.Success {
		t.Fatal("expected refusal for running VM")
	}
	want := "VM 100 must be stopped before converting to template. Current status: running"
	if env.Message != want {
		t.Errorf("message = %q, want %q", env.Message, want)
	}
}

func TestCreateTemplateConvertsStoppedVM(t *testing.T) {
	var puts []url.Values
	api := &fakeAPI{
		get: func(path string, _ url.Values) (payload.Payload, error) {
			return obj(map[string]interface{}{"status": "stopped"}), nil
		},
		put: func(path string, data url.Values) (payload.Payload, error) {
			puts = append(puts, data)
			return payload.Payload{}, nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "create_template", map[string]interface{}{
		"node": "pve1",
		"vmid": "100",
		"name": "base-image",
	})
	if !env.Success {
		t.Fatalf("envelope = %+v, want success", env)
	}
	if env.Message != "VM 100 successfully converted to template" {
		t.Errorf("message = %q", env.Message)
	}
	if len(puts) != 2 {
		t.Fatalf("config updates = %d, want 2 (rename then convert)", len(puts))
	}
	if puts[0].Get("name") != "base-image" {
		t.Errorf("first update = %v, want name set", puts[0])
	}
	if puts[1].Get("template") != "1" {
		t.Errorf("second update = %v, want template=1", puts[1])
	}
}

func TestUpdateTemplateRejectsNonTemplate(t *testing.T) {
	api := &fakeAPI{
		get: func(path string, _ url.Values) (payload.Payload, error) {
			return obj(map[string]interface{}{"template": int64(0)}), nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "update_template", map[string]interface{}{
		"node": "pve1",
		"vmid": "101",
		"name": "renamed",
	})
	if env.Success || env.Message != "VM 101 is not a template" {
		t.Errorf("envelope = %+v, want not-a-template refusal", env)
	}
}

func TestUpdateTemplateNoParameters(t *testing.T) {
	api := &fakeAPI{
		get: func(path string, _ url.Values) (payload.Payload, error) {
			return obj(map[string]interface{}{"template": int64(1)}), nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "update_template", map[string]interface{}{
		"node": "pve1",
		"vmid": "101",
	})
	if env.Success || env.Message != "No update parameters provided" {
		t.Errorf("envelope = %+v, want no-parameters refusal", env)
	}
}

func TestUpdateVMConfigNoParameters(t *testing.T) {
	api := &fakeAPI{}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "update_vm_config", map[string]interface{}{
		"node": "pve1",
		"vmid": "100",
	})
	if env.Success || env.Message != "No update parameters provided" {
		t.Errorf("envelope = %+v, want no-parameters refusal", env)
	}
	if api.calls != 0 {
		t.Errorf("remote calls = %d, want 0", api.calls)
	}
}

func TestUpdateVMConfigForwardsFreeFormKeys(t *testing.T) {
	var putValues url.Values
	api := &fakeAPI{
		put: func(path string, data url.Values) (payload.Payload, error) {
			putValues = data
			return payload.Payload{}, nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "update_vm_config", map[string]interface{}{
		"node":   "pve1",
		"vmid":   "100",
		"cores":  float64(4),
		"onboot": "1",
	})
	if !env.Success {
		t.Fatalf("envelope = %+v, want success", env)
	}
	if putValues.Get("cores") != "4" || putValues.Get("onboot") != "1" {
		t.Errorf("forwarded values = %v, want cores=4 onboot=1", putValues)
	}
}

func TestCloneTemplatePostsCloneParameters(t *testing.T) {
	var posted url.Values
	api := &fakeAPI{
		get: func(path string, _ url.Values) (payload.Payload, error) {
			return obj(map[string]interface{}{"template": int64(1)}), nil
		},
		post: func(path string, data url.Values) (payload.Payload, error) {
			if path != "/nodes/pve1/qemu/100/clone" {
				return payload.Payload{}, fmt.Errorf("unexpected POST %s", path)
			}
			posted = data
			return payload.Wrap("UPID:pve1:0001:0002:0003:qmclone:100:root@pam:"), nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "clone_template", map[string]interface{}{
		"node":          "pve1",
		"template_vmid": "100",
		"name":          "web-1",
	})
	if !env.Success {
		t.Fatalf("envelope = %+v, want success", env)
	}
	if env.Message != "Template 100 clone initiated with name 'web-1'" {
		t.Errorf("message = %q", env.Message)
	}
	if posted.Get("full") != "1" {
		t.Errorf("full = %q, want default 1", posted.Get("full"))
	}
	if env.TaskID == "" || !strings.Contains(env.Text(), "Task ID: ") {
		t.Errorf("rendered output missing task id:\n%s", env.Text())
	}
}

func TestUPIDNodeExtraction(t *testing.T) {
	node, err := upidNode("UPID:pve2:00051234:1234ABC:61A1B2C3:qmstart:100:root@pam:")
	if err != nil || node != "pve2" {
		t.Errorf("upidNode = %q, %v; want pve2", node, err)
	}

	for _, bad := range []string{"", "no-colons", "UPID::rest", "WRONG:pve1:x"} {
		if _, err := upidNode(bad); err == nil {
			t.Errorf("upidNode(%q) succeeded, want error", bad)
		}
	}
}

func TestCancelTaskParsesNodeFromUPID(t *testing.T) {
	upid := "UPID:pve3:00051234:1234ABC:61A1B2C3:qmstart:100:root@pam:"
	var deleted string
	api := &fakeAPI{
		del: func(path string) (payload.Payload, error) {
			deleted = path
			return payload.Payload{}, nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "cancel_task", map[string]interface{}{"upid": upid})
	if !env.Success {
		t.Fatalf("envelope = %+v, want success", env)
	}
	if env.Message != "Task "+upid+" cancellation initiated" {
		t.Errorf("message = %q", env.Message)
	}
	if deleted != "/nodes/pve3/tasks/"+upid {
		t.Errorf("deleted path = %q", deleted)
	}
}

func TestWaitForTaskPollsUntilStopped(t *testing.T) {
	old := taskPollInterval
	taskPollInterval = time.Millisecond
	defer func() { taskPollInterval = old }()

	upid := "UPID:pve1:0001:0002:0003:vzdump:100:root@pam:"
	polls := 0
	api := &fakeAPI{
		get: func(path string, _ url.Values) (payload.Payload, error) {
			polls++
			if polls < 3 {
				return obj(map[string]interface{}{"status": "running"}), nil
			}
			return obj(map[string]interface{}{"status": "stopped", "exitstatus": "OK"}), nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "wait_for_task", map[string]interface{}{"upid": upid})
	if !env.Success {
		t.Fatalf("envelope = %+v, want success", env)
	}
	if polls != 3 {
		t.Errorf("polls = %d, want 3", polls)
	}
}

func TestWaitForTaskReportsFailedExit(t *testing.T) {
	upid := "UPID:pve1:0001:0002:0003:vzdump:100:root@pam:"
	api := &fakeAPI{
		get: func(path string, _ url.Values) (payload.Payload, error) {
			return obj(map[string]interface{}{"status": "stopped", "exitstatus": "command failed"}), nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "wait_for_task", map[string]interface{}{"upid": upid})
	if env.Success {
		t.Fatal("expected failure envelope for non-OK exit status")
	}
	if !strings.Contains(env.Message, "command failed") {
		t.Errorf("message = %q, want exit status included", env.Message)
	}
}

func TestWaitForTaskHonorsCancellation(t *testing.T) {
	old := taskPollInterval
	taskPollInterval = time.Hour
	defer func() { taskPollInterval = old }()

	ctx, cancel := context.WithCancel(context.Background())
	api := &fakeAPI{
		get: func(path string, _ url.Values) (payload.Payload, error) {
			cancel()
			return obj(map[string]interface{}{"status": "running"}), nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(ctx, "wait_for_task", map[string]interface{}{
		"upid": "UPID:pve1:0001:0002:0003:vzdump:100:root@pam:",
	})
	if env.Success {
		t.Fatal("expected failure after context cancellation")
	}
	if !strings.Contains(env.Error, "context canceled") {
		t.Errorf("error = %q, want context cancellation", env.Error)
	}
}

func TestExecuteVMCommandAwaitsAgent(t *testing.T) {
	old := agentPollInterval
	agentPollInterval = time.Millisecond
	defer func() { agentPollInterval = old }()

	polls := 0
	api := &fakeAPI{
		post: func(path string, data url.Values) (payload.Payload, error) {
			if path != "/nodes/pve1/qemu/100/agent/exec" {
				return payload.Payload{}, fmt.Errorf("unexpected POST %s", path)
			}
			if data.Get("command") != "uname -a" {
				return payload.Payload{}, fmt.Errorf("unexpected command %q", data.Get("command"))
			}
			return obj(map[string]interface{}{"pid": int64(4321)}), nil
		},
		get: func(path string, params url.Values) (payload.Payload, error) {
			if params.Get("pid") != "4321" {
				return payload.Payload{}, fmt.Errorf("unexpected pid %q", params.Get("pid"))
			}
			polls++
			if polls == 1 {
				return obj(map[string]interface{}{"exited": int64(0)}), nil
			}
			return obj(map[string]interface{}{
				"exited":   int64(1),
				"exitcode": int64(0),
				"out-data": "Linux vm1 5.4.0\n",
			}), nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "execute_vm_command", map[string]interface{}{
		"node":    "pve1",
		"vmid":    "100",
		"command": "uname -a",
	})
	if !env.Success {
		t.Fatalf("envelope = %+v, want success", env)
	}

	text := env.Text()
	if !strings.Contains(text, "exit code: 0") || !strings.Contains(text, "Linux vm1 5.4.0") {
		t.Errorf("rendered output:\n%s", text)
	}
}

func TestExecuteContainerCommandReadsTaskLog(t *testing.T) {
	upid := "UPID:pve1:0001:0002:0003:vzexec:200:root@pam:"
	api := &fakeAPI{
		post: func(path string, data url.Values) (payload.Payload, error) {
			return payload.Wrap(upid), nil
		},
		get: func(path string, _ url.Values) (payload.Payload, error) {
			return obj(map[string]interface{}{"exitstatus": "OK"}), nil
		},
		getList: func(path string, _ url.Values) ([]payload.Payload, error) {
			if path != "/nodes/pve1/tasks/"+upid+"/log" {
				return nil, fmt.Errorf("unexpected GET %s", path)
			}
			return []payload.Payload{
				obj(map[string]interface{}{"t": "Linux ct1 5.4.0"}),
				obj(map[string]interface{}{"t": "done"}),
			}, nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "execute_container_command", map[string]interface{}{
		"node":    "pve1",
		"vmid":    "200",
		"command": "uname -a",
	})
	if !env.Success {
		t.Fatalf("envelope = %+v, want success", env)
	}
	if !strings.Contains(env.Text(), "Linux ct1 5.4.0\ndone") {
		t.Errorf("rendered output:\n%s", env.Text())
	}
}

func TestGetContainersEmptyRendersSentinel(t *testing.T) {
	api := &fakeAPI{
		nodes: nodeSummaries("pve1"),
		getList: func(path string, _ url.Values) ([]payload.Payload, error) {
			return nil, nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "get_containers", nil)
	if !env.Success {
		t.Fatalf("envelope = %+v, want success", env)
	}
	text := env.Text()
	if !strings.HasSuffix(text, "No containers found") || strings.Contains(text, "\n") {
		t.Errorf("rendered output = %q, want single sentinel line", text)
	}
}

func TestGetContainerTemplatesFiltersContent(t *testing.T) {
	api := &fakeAPI{
		getList: func(path string, params url.Values) ([]payload.Payload, error) {
			return []payload.Payload{
				obj(map[string]interface{}{
					"volid":   "local:vztmpl/ubuntu-22.04-standard_22.04-1_amd64.tar.zst",
					"content": "vztmpl",
					"size":    int64(229376000),
					"format":  "tgz",
				}),
				obj(map[string]interface{}{
					"volid":   "local:iso/debian-12.iso",
					"content": "iso",
				}),
			}, nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "get_container_templates", map[string]interface{}{"node": "pve1"})
	if !env.Success {
		t.Fatalf("envelope = %+v, want success", env)
	}
	text := env.Text()
	if !strings.Contains(text, "ubuntu-22.04-standard_22.04-1_amd64.tar.zst") {
		t.Errorf("rendered output missing template name:\n%s", text)
	}
	if strings.Contains(text, "debian-12.iso") {
		t.Errorf("iso volume leaked into template list:\n%s", text)
	}
}

func TestGetNextVMID(t *testing.T) {
	api := &fakeAPI{
		get: func(path string, _ url.Values) (payload.Payload, error) {
			if path != "/cluster/nextid" {
				return payload.Payload{}, fmt.Errorf("unexpected GET %s", path)
			}
			return payload.Wrap("105"), nil
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "get_next_vmid", nil)
	if !env.Success || env.Message != "Next available VM ID: 105" {
		t.Errorf("envelope = %+v", env)
	}
}

func TestGetClusterStatus(t *testing.T) {
	api := &fakeAPI{
		getList: func(path string, _ url.Values) ([]payload.Payload, error) {
			switch path {
			case "/cluster/status":
				return []payload.Payload{
					obj(map[string]interface{}{"type": "cluster", "name": "homelab", "quorate": int64(1), "nodes": int64(3)}),
					obj(map[string]interface{}{"type": "node", "name": "pve1"}),
				}, nil
			case "/cluster/resources":
				return []payload.Payload{
					obj(map[string]interface{}{"id": "qemu/100"}),
					obj(map[string]interface{}{"id": "qemu/101"}),
				}, nil
			}
			return nil, fmt.Errorf("unexpected GET %s", path)
		},
	}
	d := NewDispatcher(api)

	env := d.Dispatch(context.Background(), "get_cluster_status", nil)
	if !env.Success {
		t.Fatalf("envelope = %+v, want success", env)
	}
	text := env.Text()
	for _, want := range []string{"Name: homelab", "Quorum: OK", "Nodes: 3", "Resources: 2"} {
		if !strings.Contains(text, want) {
			t.Errorf("rendered output missing %q:\n%s", want, text)
		}
	}
}
