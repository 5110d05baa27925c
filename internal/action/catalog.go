// Package action holds the closed catalog of remote operations the client can invoke.
package action

import (
	"slices"

	"github.com/hejijunhao/scalr/internal/model"
)

// Name is the symbolic name of an action, e.g. "farms_list".
type Name string

// Input is one positional parameter of an action.
type Input struct {
	Name     string // wire parameter name
	Required bool
}

// Descriptor describes a remote operation: how to encode its arguments and
// where to find its results in the response.
type Descriptor struct {
	Name      Name
	Remote    string     // wire action name, e.g. "FarmsList"
	Inputs    []Input    // positional argument i is sent as Inputs[i].Name
	ResultSet string     // list element holding <Item> children, empty for scalar responses
	LogKind   model.Kind // set for actions returning log records
}

// ReturnsLogs reports whether the action returns log records.
func (d Descriptor) ReturnsLogs() bool { return d.LogKind != "" }

func req(name string) Input { return Input{Name: name, Required: true} }
func opt(name string) Input { return Input{Name: name} }

// catalog is built once and never mutated.
var catalog = func() map[Name]Descriptor {
	descs := []Descriptor{
		// Farms
		{Name: "farms_list", Remote: "FarmsList", ResultSet: "FarmSet"},
		{Name: "farm_get_details", Remote: "FarmGetDetails", Inputs: []Input{req("FarmID")}, ResultSet: "FarmRoleSet"},
		{Name: "farm_get_stats", Remote: "FarmGetStats", Inputs: []Input{req("FarmID"), opt("Date")}, ResultSet: "StatisticsSet"},
		{Name: "farm_launch", Remote: "FarmLaunch", Inputs: []Input{req("FarmID")}},
		{Name: "farm_terminate", Remote: "FarmTerminate", Inputs: []Input{req("FarmID"), req("KeepEBS"), opt("KeepEIP"), opt("KeepDNSZone")}},
		{Name: "farm_clone", Remote: "FarmClone", Inputs: []Input{req("FarmID")}},

		// Servers
		{Name: "server_launch", Remote: "ServerLaunch", Inputs: []Input{req("FarmRoleID"), opt("IncreaseMaxInstances")}},
		{Name: "server_reboot", Remote: "ServerReboot", Inputs: []Input{req("ServerID")}},
		{Name: "server_terminate", Remote: "ServerTerminate", Inputs: []Input{req("ServerID"), opt("DecreaseMinInstancesSetting")}},
		{Name: "server_image_create", Remote: "ServerImageCreate", Inputs: []Input{req("ServerID"), req("RoleName")}},
		{Name: "bundle_task_get_status", Remote: "BundleTaskGetStatus", Inputs: []Input{req("BundleTaskID")}},

		// Roles
		{Name: "roles_list", Remote: "RolesList", Inputs: []Input{opt("Platform"), opt("Name"), opt("Prefix"), opt("ImageID")}, ResultSet: "RoleSet"},
		{Name: "role_images_list", Remote: "RoleImagesList", Inputs: []Input{req("RoleID")}, ResultSet: "ImageSet"},

		// Scripts
		{Name: "scripts_list", Remote: "ScriptsList", ResultSet: "ScriptSet"},
		{Name: "script_get_details", Remote: "ScriptGetDetails", Inputs: []Input{req("ScriptID")}, ResultSet: "RevisionSet"},
		{Name: "script_execute", Remote: "ScriptExecute", Inputs: []Input{
			req("FarmID"), req("ScriptID"), req("Timeout"), req("Async"),
			opt("FarmRoleID"), opt("ServerID"), opt("Revision"), opt("ConfigVariables"),
		}},

		// Logs and events
		{Name: "logs_list", Remote: "LogsList", Inputs: []Input{req("FarmID"), opt("ServerID"), opt("StartFrom"), opt("RecordsLimit")}, ResultSet: "LogSet", LogKind: model.KindSystem},
		{Name: "scripting_logs_list", Remote: "ScriptingLogsList", Inputs: []Input{req("FarmID"), opt("ServerID"), opt("StartFrom"), opt("RecordsLimit")}, ResultSet: "LogSet", LogKind: model.KindScript},
		{Name: "events_list", Remote: "EventsList", Inputs: []Input{req("FarmID"), opt("StartFrom"), opt("RecordsLimit")}, ResultSet: "EventSet"},
		{Name: "environments_list", Remote: "EnvironmentsList", ResultSet: "EnvironmentSet"},

		// DNS
		{Name: "dns_zones_list", Remote: "DNSZonesList", ResultSet: "DNSZoneSet"},
		{Name: "dns_zone_create", Remote: "DNSZoneCreate", Inputs: []Input{req("DomainName"), opt("FarmID"), opt("FarmRoleID")}},
		{Name: "dns_zone_records_list", Remote: "DNSZoneRecordsList", Inputs: []Input{req("ZoneName")}, ResultSet: "ZoneRecordSet"},
		{Name: "dns_zone_record_add", Remote: "DNSZoneRecordAdd", Inputs: []Input{
			req("ZoneName"), req("Type"), req("TTL"), req("Name"), req("Value"),
			opt("Priority"), opt("Weight"), opt("Port"),
		}},
		{Name: "dns_zone_record_remove", Remote: "DNSZoneRecordRemove", Inputs: []Input{req("ZoneName"), req("RecordID")}},

		// Apache virtual hosts
		{Name: "apache_vhosts_list", Remote: "ApacheVhostsList", ResultSet: "ApacheVhostSet"},
		{Name: "apache_vhost_create", Remote: "ApacheVhostCreate", Inputs: []Input{
			req("DomainName"), req("FarmID"), req("FarmRoleID"), req("DocumentRootDir"),
			req("EnableSSL"), opt("SSLPrivateKey"), opt("SSLCertificate"),
		}},

		// Statistics
		{Name: "statistics_get_graph_url", Remote: "StatisticsGetGraphURL", Inputs: []Input{req("ObjectType"), req("ObjectID"), req("WatcherName"), req("GraphType")}},

		// Deployment manager
		{Name: "dm_sources_list", Remote: "DmSourcesList", ResultSet: "SourceSet"},
		{Name: "dm_source_create", Remote: "DmSourceCreate", Inputs: []Input{req("Type"), req("URL"), opt("AuthLogin"), opt("AuthPassword")}},
		{Name: "dm_applications_list", Remote: "DmApplicationsList", ResultSet: "ApplicationSet"},
		{Name: "dm_application_create", Remote: "DmApplicationCreate", Inputs: []Input{req("Name"), req("SourceID"), opt("PreDeployScript"), opt("PostDeployScript")}},
		{Name: "dm_application_deploy", Remote: "DmApplicationDeploy", Inputs: []Input{req("ApplicationID"), req("FarmRoleID"), req("RemotePath")}, ResultSet: "DeploymentTasksSet"},
		{Name: "dm_deployment_tasks_list", Remote: "DmDeploymentTasksList", Inputs: []Input{opt("FarmRoleID"), opt("ApplicationID"), opt("ServerID")}, ResultSet: "DeploymentTasksSet"},
		{Name: "dm_deployment_task_get_status", Remote: "DmDeploymentTaskGetStatus", Inputs: []Input{req("DeploymentTaskID")}},
	}

	m := make(map[Name]Descriptor, len(descs))
	for _, d := range descs {
		m[d.Name] = d
	}
	return m
}()

// Lookup returns the descriptor for a symbolic action name.
func Lookup(name Name) (Descriptor, bool) {
	d, ok := catalog[name]
	if !ok {
		return Descriptor{}, false
	}
	d.Inputs = slices.Clone(d.Inputs)
	return d, true
}

// Known reports whether name is a catalog action.
func Known(name Name) bool {
	_, ok := catalog[name]
	return ok
}

// Names returns all action names, sorted.
func Names() []Name {
	names := make([]Name, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
