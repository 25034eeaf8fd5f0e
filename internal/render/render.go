// Package render turns normalized records into the fixed multi-line
// text blocks shown to callers. Each record kind selects one template;
// templates only read fields that projection guarantees are present,
// so rendering never fails on missing data.
package render

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/proxmoxmcp/proxmox-mcp/internal/format"
)

// Kind selects the output template for a result.
type Kind string

const (
	KindNodeList           Kind = "node_list"
	KindNodeStatus         Kind = "node_status"
	KindVMList             Kind = "vm_list"
	KindStorageList        Kind = "storage_list"
	KindContainerList      Kind = "container_list"
	KindContainerStatus    Kind = "container_status"
	KindContainerConfig    Kind = "container_config"
	KindPerformance        Kind = "performance"
	KindContainerTemplates Kind = "container_templates"
	KindVMTemplates        Kind = "vm_templates"
	KindTemplateDetails    Kind = "template_details"
	KindClusterStatus      Kind = "cluster_status"
	KindOperation          Kind = "operation"
	KindCommand            Kind = "command"

	// Kinds without a dedicated template fall back to indented JSON.
	KindVMConfig   Kind = "vm_config"
	KindSnapshots  Kind = "vm_snapshots"
	KindTasks      Kind = "tasks"
	KindTaskStatus Kind = "task_status"
	KindBackups    Kind = "backups"
	KindRaw        Kind = ""
)

// Section and resource markers shared by all templates.
const (
	markerNode        = "🖥️"
	markerVM          = "💻"
	markerContainer   = "📦"
	markerStorage     = "💾"
	markerTemplate    = "📋"
	markerConfig      = "⚙️"
	markerNetwork     = "🌐"
	markerPerformance = "📊"
	markerSuccess     = "✅"
	markerError       = "❌"
)

// Record is a normalized projection of a raw API payload.
type Record = map[string]interface{}

// Render formats data for the given kind. Kinds without a template
// render as indented JSON.
func Render(kind Kind, data interface{}) string {
	switch kind {
	case KindNodeList:
		return nodeList(records(data))
	case KindNodeStatus:
		return nodeStatus(record(data))
	case KindVMList:
		return vmList(records(data))
	case KindStorageList:
		return storageList(records(data))
	case KindContainerList:
		return containerList(records(data))
	case KindContainerStatus:
		return containerStatus(record(data))
	case KindContainerConfig:
		return containerConfig(record(data))
	case KindPerformance:
		return performance(record(data))
	case KindContainerTemplates:
		return containerTemplates(records(data))
	case KindVMTemplates:
		return vmTemplates(records(data))
	case KindTemplateDetails:
		return templateDetails(record(data))
	case KindClusterStatus:
		return clusterStatus(record(data))
	default:
		return rawJSON(data)
	}
}

// Operation renders a mutation result: a success line with an optional
// task id, or an error line with optional detail.
func Operation(success bool, message, taskID, errDetail string) string {
	if success {
		if message == "" {
			message = "Operation completed successfully"
		}
		lines := []string{markerSuccess + " " + message}
		if taskID != "" {
			lines = append(lines, "", "Task ID: "+taskID)
		}
		return strings.Join(lines, "\n")
	}

	if message == "" {
		message = "Operation failed"
	}
	lines := []string{markerError + " " + message}
	if errDetail != "" {
		lines = append(lines, "", "Error: "+errDetail)
	}
	return strings.Join(lines, "\n")
}

// Command renders a remote command execution result with its exit code
// and captured output.
func Command(success bool, exitCode int64, output string) string {
	header := fmt.Sprintf("%s Command executed successfully (exit code: %d)", markerSuccess, exitCode)
	if !success {
		header = fmt.Sprintf("%s Command execution failed (exit code: %d)", markerError, exitCode)
	}
	return strings.Join([]string{header, "", "Output:", output}, "\n")
}

func nodeList(nodes []Record) string {
	lines := []string{markerNode + " Proxmox Nodes"}
	for _, node := range nodes {
		lines = append(lines, "",
			fmt.Sprintf("%s %s", markerNode, str(node, "node", "N/A")),
			"  • Status: "+strings.ToUpper(str(node, "status", "unknown")),
			"  • Uptime: "+format.Uptime(num(node, "uptime")),
			"  • CPU Cores: "+str(node, "maxcpu", "N/A"),
			memoryLine(rec(node, "memory")),
		)
		if disk := rec(node, "disk"); len(disk) > 0 {
			lines = append(lines, usageLine("Disk", disk))
		}
	}
	return strings.Join(lines, "\n")
}

func nodeStatus(status Record) string {
	lines := []string{
		fmt.Sprintf("%s Node: %s", markerNode, str(status, "node", "N/A")),
		"  • Status: " + strings.ToUpper(str(status, "status", "unknown")),
		"  • Uptime: " + format.Uptime(num(status, "uptime")),
		"  • CPU Cores: " + str(status, "maxcpu", "N/A"),
		memoryLine(rec(status, "memory")),
	}
	if disk := rec(status, "disk"); len(disk) > 0 {
		lines = append(lines, usageLine("Disk", disk))
	}
	return strings.Join(lines, "\n")
}

func vmList(vms []Record) string {
	lines := []string{markerVM + " Virtual Machines"}
	for _, vm := range vms {
		lines = append(lines, "",
			fmt.Sprintf("%s %s (ID: %s)", markerVM, str(vm, "name", "N/A"), str(vm, "vmid", "N/A")),
			"  • Status: "+strings.ToUpper(str(vm, "status", "unknown")),
			"  • Node: "+str(vm, "node", "N/A"),
			"  • CPU Cores: "+str(vm, "cpus", "N/A"),
			memoryLine(rec(vm, "memory")),
		)
	}
	return strings.Join(lines, "\n")
}

func storageList(stores []Record) string {
	lines := []string{markerStorage + " Storage Pools"}
	for _, store := range stores {
		lines = append(lines, "",
			fmt.Sprintf("%s %s", markerStorage, str(store, "storage", "N/A")),
			"  • Status: "+strings.ToUpper(str(store, "status", "unknown")),
			"  • Type: "+str(store, "type", "N/A"),
			usageLine("Usage", store),
		)
	}
	return strings.Join(lines, "\n")
}

func containerList(containers []Record) string {
	if len(containers) == 0 {
		return markerContainer + " No containers found"
	}

	lines := []string{markerContainer + " Containers"}
	for _, ct := range containers {
		lines = append(lines, "",
			fmt.Sprintf("%s %s (ID: %s)", markerContainer, str(ct, "name", "N/A"), str(ct, "vmid", "N/A")),
			"  • Status: "+strings.ToUpper(str(ct, "status", "unknown")),
			"  • Node: "+str(ct, "node", "N/A"),
			"  • CPU Cores: "+str(ct, "cpus", "N/A"),
			memoryLine(rec(ct, "memory")),
		)
	}
	return strings.Join(lines, "\n")
}

func containerStatus(ct Record) string {
	name := str(ct, "name", "")
	if name == "" {
		name = str(ct, "vmid", "Unknown")
	}
	lines := []string{
		fmt.Sprintf("%s Container: %s (ID: %s)", markerContainer, name, str(ct, "vmid", "N/A")),
		"  • Status: " + strings.ToUpper(str(ct, "status", "unknown")),
		"  • Node: " + str(ct, "node", "N/A"),
	}

	cpu := rec(ct, "cpu")
	lines = append(lines, fmt.Sprintf("  • CPU: %s cores, %.1f%% usage",
		str(cpu, "cores", "N/A"), fnum(cpu, "usage")*100))
	lines = append(lines, memoryLine(rec(ct, "memory")))

	if uptime := num(ct, "uptime"); uptime > 0 {
		lines = append(lines, "  • Uptime: "+format.Uptime(uptime))
	}
	if network := rec(ct, "network"); len(network) > 0 {
		lines = append(lines, fmt.Sprintf("  • Network: %s in, %s out",
			format.Bytes(num(network, "in_bytes")), format.Bytes(num(network, "out_bytes"))))
	}
	if disk := rec(ct, "disk"); len(disk) > 0 {
		lines = append(lines, fmt.Sprintf("  • Disk: %s read, %s write",
			format.Bytes(num(disk, "read_bytes")), format.Bytes(num(disk, "write_bytes"))))
	}
	return strings.Join(lines, "\n")
}

func containerConfig(config Record) string {
	onboot := "No"
	if num(config, "onboot") == 1 {
		onboot = "Yes"
	}
	lines := []string{
		markerConfig + " Container Configuration",
		"",
		"  • Hostname: " + str(config, "hostname", "N/A"),
		"  • CPU: " + str(config, "cores", "N/A") + " cores",
		"  • Memory: " + str(config, "memory", "N/A") + " MB",
		"  • Swap: " + str(config, "swap", "N/A") + " MB",
		"  • Start on boot: " + onboot,
	}

	if nets := bucketLines(config, isNetKey); len(nets) > 0 {
		lines = append(lines, "", markerNetwork+" Network Interfaces")
		lines = append(lines, nets...)
	}
	if mounts := bucketLines(config, isMountKey); len(mounts) > 0 {
		lines = append(lines, "", markerStorage+" Storage")
		lines = append(lines, mounts...)
	}
	return strings.Join(lines, "\n")
}

func performance(perf Record) string {
	memory := rec(perf, "memory")
	diskIO := rec(perf, "disk_io")
	network := rec(perf, "network")
	lines := []string{
		markerPerformance + " Performance",
		fmt.Sprintf("  • CPU Usage: %.1f%%", fnum(perf, "cpu_usage")*100),
		memoryLine(memory),
		fmt.Sprintf("  • Disk I/O: %s read, %s write",
			format.Bytes(num(diskIO, "read_bytes")), format.Bytes(num(diskIO, "write_bytes"))),
		fmt.Sprintf("  • Network I/O: %s in, %s out",
			format.Bytes(num(network, "in_bytes")), format.Bytes(num(network, "out_bytes"))),
	}
	return strings.Join(lines, "\n")
}

func containerTemplates(templates []Record) string {
	if len(templates) == 0 {
		return markerTemplate + " No container templates found"
	}

	lines := []string{markerTemplate + " Container Templates"}
	for _, tmpl := range templates {
		volid := str(tmpl, "volid", "Unknown")
		lines = append(lines, "",
			markerTemplate+" "+volumeName(volid),
			"  • Volume ID: "+volid,
			"  • Size: "+format.Bytes(num(tmpl, "size")),
			"  • Format: "+str(tmpl, "format", "N/A"),
		)
	}
	return strings.Join(lines, "\n")
}

func vmTemplates(templates []Record) string {
	if len(templates) == 0 {
		return markerTemplate + " No VM templates found"
	}

	lines := []string{markerTemplate + " VM Templates"}
	for _, tmpl := range templates {
		lines = append(lines, "")
		lines = append(lines, templateSummary(tmpl)...)
		if disks := rec(tmpl, "disks"); len(disks) > 0 {
			lines = append(lines, "  • Disks:")
			for _, key := range sortedKeys(disks) {
				lines = append(lines, fmt.Sprintf("    - %s: %v", key, disks[key]))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func templateDetails(tmpl Record) string {
	if len(tmpl) == 0 {
		return markerTemplate + " Template details not found"
	}

	name := str(tmpl, "name", "")
	if name == "" {
		name = "vm-" + str(tmpl, "vmid", "Unknown")
	}
	lines := []string{
		fmt.Sprintf("%s Template: %s (ID: %s)", markerTemplate, name, str(tmpl, "vmid", "Unknown")),
		"  • Node: " + str(tmpl, "node", "N/A"),
		"  • Description: " + str(tmpl, "description", "No description"),
		"  • CPU Cores: " + str(tmpl, "cores", "N/A"),
		"  • Memory: " + str(tmpl, "memory", "N/A") + " MB",
		"  • OS Type: " + str(tmpl, "os_type", "N/A"),
	}

	if disks := rec(tmpl, "disks"); len(disks) > 0 {
		lines = append(lines, "", markerStorage+" Disks")
		for _, key := range sortedKeys(disks) {
			lines = append(lines, fmt.Sprintf("  • %s: %v", key, disks[key]))
		}
	}
	if networks := rec(tmpl, "networks"); len(networks) > 0 {
		lines = append(lines, "", markerNetwork+" Network Interfaces")
		for _, key := range sortedKeys(networks) {
			lines = append(lines, fmt.Sprintf("  • %s: %v", key, networks[key]))
		}
	}
	return strings.Join(lines, "\n")
}

func clusterStatus(status Record) string {
	quorum := "NOT OK"
	if b, ok := status["quorum"].(bool); ok && b {
		quorum = "OK"
	}
	lines := []string{
		markerConfig + " Proxmox Cluster",
		"",
		"  • Name: " + str(status, "name", "N/A"),
		"  • Quorum: " + quorum,
		fmt.Sprintf("  • Nodes: %d", num(status, "nodes")),
	}
	if resources := num(status, "resources"); resources > 0 {
		lines = append(lines, fmt.Sprintf("  • Resources: %d", resources))
	}
	return strings.Join(lines, "\n")
}

func templateSummary(tmpl Record) []string {
	name := str(tmpl, "name", "")
	if name == "" {
		name = "vm-" + str(tmpl, "vmid", "Unknown")
	}
	return []string{
		fmt.Sprintf("%s %s (ID: %s)", markerTemplate, name, str(tmpl, "vmid", "Unknown")),
		"  • Node: " + str(tmpl, "node", "N/A"),
		"  • Description: " + str(tmpl, "description", "No description"),
		"  • CPU Cores: " + str(tmpl, "cores", "N/A"),
		"  • Memory: " + str(tmpl, "memory", "N/A") + " MB",
		"  • OS Type: " + str(tmpl, "os_type", "N/A"),
	}
}

// volumeName extracts the display name from a compound volume id such
// as local:vztmpl/ubuntu-22.04-standard_22.04-1_amd64.tar.zst.
func volumeName(volid string) string {
	if idx := strings.LastIndex(volid, "/"); idx >= 0 {
		return volid[idx+1:]
	}
	return volid
}

func memoryLine(memory Record) string {
	used := num(memory, "used")
	total := num(memory, "total")
	return fmt.Sprintf("  • Memory: %s / %s (%.1f%%)",
		format.Bytes(used), format.Bytes(total), format.Percent(float64(used), float64(total)))
}

func usageLine(label string, usage Record) string {
	used := num(usage, "used")
	total := num(usage, "total")
	return fmt.Sprintf("  • %s: %s / %s (%.1f%%)",
		label, format.Bytes(used), format.Bytes(total), format.Percent(float64(used), float64(total)))
}

func isNetKey(key string) bool {
	return strings.HasPrefix(key, "net") && key != "netif"
}

func isMountKey(key string) bool {
	return strings.HasPrefix(key, "mp") || key == "rootfs"
}

func bucketLines(config Record, match func(string) bool) []string {
	var lines []string
	for _, key := range sortedKeys(config) {
		if match(key) {
			lines = append(lines, fmt.Sprintf("  • %s: %v", key, config[key]))
		}
	}
	return lines
}

func record(data interface{}) Record {
	if r, ok := data.(Record); ok {
		return r
	}
	return Record{}
}

func records(data interface{}) []Record {
	switch v := data.(type) {
	case []Record:
		return v
	case Record:
		return []Record{v}
	default:
		return nil
	}
}

func rec(r Record, key string) Record {
	if nested, ok := r[key].(Record); ok {
		return nested
	}
	return Record{}
}

func str(r Record, key, def string) string {
	switch v := r[key].(type) {
	case string:
		if v == "" {
			return def
		}
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case int:
		return fmt.Sprintf("%d", v)
	default:
		return def
	}
}

func num(r Record, key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func fnum(r Record, key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

func sortedKeys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func rawJSON(data interface{}) string {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(out)
}
