package source

// AdminStation is the code of the single admin station.
const AdminStation = "WKTS"

var demoStations = []Station{
	{Code: "IETS", Name: "港島東轉運站", Color: "#3b82f6"},
	{Code: "IWTS", Name: "港島西轉運站", Color: "#10b981"},
	{Code: "NLTS", Name: "北大嶼山轉運站", Color: "#f59e0b"},
	{Code: "NWNNTS", Name: "西北新界轉運站", Color: "#ef4444"},
	{Code: "OITF", Name: "離島轉運設施", Color: "#8b5cf6"},
	{Code: "STTS", Name: "沙田轉運站", Color: "#ec4899"},
	{Code: AdminStation, Name: "西九龍轉運站 (管理員)", Color: "#6b7280", IsAdmin: true},
}

var (
	demoCategories = []string{"建築廢物", "商業廢物", "家居廢物", "污泥", "園林廢物"}
	demoRegions    = []string{"中西區", "東區", "南區", "沙田區", "屯門區", "元朗區", "離島區", "油尖旺區"}
	demoStatuses   = []string{"已交收", "已交收", "已交收", "待處理", "已拒收"}
	demoTasks      = []string{"收集", "轉運", "直接運送"}
)

// DemoDirectory returns the fixed table of the seven known stations.
func DemoDirectory() Directory {
	dir := make(Directory, len(demoStations))
	for _, s := range demoStations {
		dir[s.Code] = s
	}
	return dir
}

// DemoFilterOptions returns the fixed category and region lists.
func DemoFilterOptions() FilterOptions {
	return FilterOptions{
		WasteCategories: append([]string(nil), demoCategories...),
		SourceRegions:   append([]string(nil), demoRegions...),
	}
}
