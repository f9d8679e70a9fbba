package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restobooker/hub"
	"github.com/yeremiapane/restobooker/models"
	"github.com/yeremiapane/restobooker/utils"
	"gorm.io/gorm"
)

// TableController serves the floor layout: public listings and staff editing.
type TableController struct {
	DB       *gorm.DB
	MediaURL string
}

func NewTableController(db *gorm.DB, mediaURL string) *TableController {
	return &TableController{DB: db, MediaURL: mediaURL}
}

func (tc *TableController) mediaURL(path *string) *string {
	if path == nil || *path == "" {
		return nil
	}
	url := strings.TrimRight(tc.MediaURL, "/") + "/" + strings.TrimLeft(*path, "/")
	return &url
}

type areaItem struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Order       uint    `json:"order"`
	IsActive    bool    `json:"is_active"`
	Photo       *string `json:"photo"`
}

func (tc *TableController) newAreaItem(a models.Area) areaItem {
	return areaItem{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Order:       a.Order,
		IsActive:    a.IsActive,
		Photo:       tc.mediaURL(a.Photo),
	}
}

type tableItem struct {
	ID            uint             `json:"id"`
	Area          uint             `json:"area"`
	AreaName      string           `json:"area_name"`
	Name          string           `json:"name"`
	Capacity      uint             `json:"capacity"`
	Type          models.TableType `json:"type"`
	TypeLabel     string           `json:"type_label"`
	X             float64          `json:"x"`
	Y             float64          `json:"y"`
	IsActive      bool             `json:"is_active"`
	Photo         *string          `json:"photo"`
	PhotoInactive *string          `json:"photo_inactive"`
}

func (tc *TableController) newTableItem(t models.Table) tableItem {
	return tableItem{
		ID:            t.ID,
		Area:          t.AreaID,
		AreaName:      t.Area.Name,
		Name:          t.Name,
		Capacity:      t.Capacity,
		Type:          t.Type,
		TypeLabel:     t.Type.Label(),
		X:             t.X,
		Y:             t.Y,
		IsActive:      t.IsActive,
		Photo:         tc.mediaURL(t.Photo),
		PhotoInactive: tc.mediaURL(t.PhotoInactive),
	}
}

// GetAreas -> area aktif, urut (order, name)
func (tc *TableController) GetAreas(c *gin.Context) {
	var areas []models.Area
	if err := tc.DB.Where("is_active = ?", true).Order("display_order ASC").Order("name ASC").Find(&areas).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	items := make([]areaItem, 0, len(areas))
	for _, a := range areas {
		items = append(items, tc.newAreaItem(a))
	}
	utils.RespondJSON(c, http.StatusOK, "List of areas", items)
}

// activeTables returns active tables ordered by area name then table name.
func activeTables(db *gorm.DB, areaID *uint) *gorm.DB {
	q := db.Model(&models.Table{}).
		Select("tables.*").
		Joins("JOIN areas ON areas.id = tables.area_id").
		Where("tables.is_active = ?", true).
		Preload("Area")
	if areaID != nil {
		q = q.Where("tables.area_id = ?", *areaID)
	}
	return q.Order("areas.name ASC").Order("tables.name ASC")
}

func optionalUintQuery(c *gin.Context, key string) (*uint, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New(key+" must be a positive integer"))
		return nil, false
	}
	id := uint(v)
	return &id, true
}

// GetTables -> meja aktif, opsional filter area
func (tc *TableController) GetTables(c *gin.Context) {
	areaID, ok := optionalUintQuery(c, "area")
	if !ok {
		return
	}
	var tables []models.Table
	if err := activeTables(tc.DB, areaID).Find(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	items := make([]tableItem, 0, len(tables))
	for _, t := range tables {
		items = append(items, tc.newTableItem(t))
	}
	utils.RespondJSON(c, http.StatusOK, "List of tables", items)
}

// GetTableTypes -> tipe meja yang dipakai meja aktif
func (tc *TableController) GetTableTypes(c *gin.Context) {
	var codes []string
	if err := tc.DB.Model(&models.Table{}).Where("is_active = ?", true).Distinct().Pluck("type", &codes).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	used := make(map[models.TableType]bool, len(codes))
	for _, code := range codes {
		used[models.TableType(code)] = true
	}
	types := make([]gin.H, 0, len(used))
	for _, t := range models.TableTypes {
		if used[t] {
			types = append(types, gin.H{"code": t, "label": t.Label()})
		}
	}
	utils.RespondJSON(c, http.StatusOK, "List of table types", types)
}

type areaRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Order       *uint   `json:"order"`
	IsActive    *bool   `json:"is_active"`
	Photo       *string `json:"photo"`
}

func (tc *TableController) areaNameTaken(name string, exceptID uint) (bool, error) {
	var count int64
	err := tc.DB.Model(&models.Area{}).Where("name = ? AND id <> ?", name, exceptID).Count(&count).Error
	return count > 0, err
}

// CreateArea -> menambahkan area baru
func (tc *TableController) CreateArea(c *gin.Context) {
	var req areaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		utils.RespondFieldErrors(c, http.StatusBadRequest, "name is required", map[string][]string{"name": {"name is required"}})
		return
	}

	area := models.Area{Name: strings.TrimSpace(*req.Name), IsActive: true}
	applyAreaRequest(&area, req)
	if taken, err := tc.areaNameTaken(area.Name, 0); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	} else if taken {
		utils.RespondFieldErrors(c, http.StatusConflict, "area name already exists", map[string][]string{"name": {"area name already exists"}})
		return
	}

	if err := tc.DB.Create(&area).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	item := tc.newAreaItem(area)
	hub.BroadcastAreaUpdate(item)
	utils.InfoLogger.Printf("New area created: %s", area.Name)
	utils.RespondJSON(c, http.StatusCreated, "Area created successfully", item)
}

func applyAreaRequest(area *models.Area, req areaRequest) {
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		area.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		area.Description = *req.Description
	}
	if req.Order != nil {
		area.Order = *req.Order
	}
	if req.IsActive != nil {
		area.IsActive = *req.IsActive
	}
	if req.Photo != nil {
		area.Photo = req.Photo
	}
}

// UpdateArea -> ubah sebagian field area
func (tc *TableController) UpdateArea(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req areaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var area models.Area
	if err := tc.DB.First(&area, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("area not found"))
		return
	}
	applyAreaRequest(&area, req)
	if taken, err := tc.areaNameTaken(area.Name, area.ID); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	} else if taken {
		utils.RespondFieldErrors(c, http.StatusConflict, "area name already exists", map[string][]string{"name": {"area name already exists"}})
		return
	}
	if err := tc.DB.Save(&area).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	item := tc.newAreaItem(area)
	hub.BroadcastAreaUpdate(item)
	utils.InfoLogger.Printf("Area %d updated", area.ID)
	utils.RespondJSON(c, http.StatusOK, "Area updated", item)
}

// DeleteArea -> hapus area tanpa meja
func (tc *TableController) DeleteArea(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var area models.Area
	if err := tc.DB.First(&area, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("area not found"))
		return
	}

	var tables int64
	if err := tc.DB.Model(&models.Table{}).Where("area_id = ?", area.ID).Count(&tables).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if tables > 0 {
		utils.RespondError(c, http.StatusConflict, errors.New("area still has tables"))
		return
	}

	if err := tc.DB.Delete(&area).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	hub.BroadcastAreaDelete(area.ID)
	utils.InfoLogger.Printf("Area %d deleted", area.ID)
	utils.RespondJSON(c, http.StatusOK, "Area deleted", gin.H{"id": area.ID})
}

type tableRequest struct {
	AreaID        *uint    `json:"area"`
	Name          *string  `json:"name"`
	Capacity      *int     `json:"capacity"`
	Type          *string  `json:"type"`
	X             *float64 `json:"x"`
	Y             *float64 `json:"y"`
	IsActive      *bool    `json:"is_active"`
	Photo         *string  `json:"photo"`
	PhotoInactive *string  `json:"photo_inactive"`
}

// applyTableRequest copies the set fields of req into table and returns field errors.
func (tc *TableController) applyTableRequest(table *models.Table, req tableRequest) (map[string][]string, error) {
	errs := map[string][]string{}
	if req.AreaID != nil {
		var count int64
		if err := tc.DB.Model(&models.Area{}).Where("id = ?", *req.AreaID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count == 0 {
			errs["area"] = append(errs["area"], "area not found")
		}
		table.AreaID = *req.AreaID
	}
	if req.Name != nil {
		if name := strings.TrimSpace(*req.Name); name != "" {
			table.Name = name
		} else {
			errs["name"] = append(errs["name"], "name must not be blank")
		}
	}
	if req.Capacity != nil {
		if *req.Capacity < 1 {
			errs["capacity"] = append(errs["capacity"], "capacity must be positive")
		} else {
			table.Capacity = uint(*req.Capacity)
		}
	}
	if req.Type != nil {
		t, ok := models.ParseTableType(*req.Type)
		if !ok {
			errs["type"] = append(errs["type"], "unknown table type")
		}
		table.Type = t
	}
	if req.X != nil {
		table.X = *req.X
	}
	if req.Y != nil {
		table.Y = *req.Y
	}
	if req.IsActive != nil {
		table.IsActive = *req.IsActive
	}
	if req.Photo != nil {
		table.Photo = req.Photo
	}
	if req.PhotoInactive != nil {
		table.PhotoInactive = req.PhotoInactive
	}

	if len(errs) == 0 {
		var count int64
		if err := tc.DB.Model(&models.Table{}).
			Where("area_id = ? AND name = ? AND id <> ?", table.AreaID, table.Name, table.ID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			errs["name"] = append(errs["name"], "table name already exists in this area")
		}
	}
	return errs, nil
}

// CreateTable -> menambahkan meja baru
func (tc *TableController) CreateTable(c *gin.Context) {
	var req tableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	missing := map[string][]string{}
	if req.AreaID == nil {
		missing["area"] = []string{"area is required"}
	}
	if req.Name == nil {
		missing["name"] = []string{"name is required"}
	}
	if req.Capacity == nil {
		missing["capacity"] = []string{"capacity is required"}
	}
	if len(missing) > 0 {
		utils.RespondFieldErrors(c, http.StatusBadRequest, "missing required fields", missing)
		return
	}

	table := models.Table{Type: models.DefaultTableType, IsActive: true}
	errs, err := tc.applyTableRequest(&table, req)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if len(errs) > 0 {
		utils.RespondFieldErrors(c, http.StatusBadRequest, "invalid table", errs)
		return
	}

	if err := tc.DB.Create(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	tc.DB.Preload("Area").First(&table, table.ID)

	item := tc.newTableItem(table)
	hub.BroadcastTableUpdate(item)
	utils.InfoLogger.Printf("New table created: %s in area %d (capacity=%d)", table.Name, table.AreaID, table.Capacity)
	utils.RespondJSON(c, http.StatusCreated, "Table created successfully", item)
}

// UpdateTable -> ubah sebagian field meja, termasuk is_active
func (tc *TableController) UpdateTable(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req tableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var table models.Table
	if err := tc.DB.First(&table, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return
	}
	errs, err := tc.applyTableRequest(&table, req)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if len(errs) > 0 {
		utils.RespondFieldErrors(c, http.StatusBadRequest, "invalid table", errs)
		return
	}

	if err := tc.DB.Omit("Area").Save(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	tc.DB.Preload("Area").First(&table, table.ID)

	item := tc.newTableItem(table)
	hub.BroadcastTableUpdate(item)
	utils.InfoLogger.Printf("Table %d updated (active=%t)", table.ID, table.IsActive)
	utils.RespondJSON(c, http.StatusOK, "Table updated", item)
}

// DeleteTable -> hapus meja tanpa riwayat booking
func (tc *TableController) DeleteTable(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var table models.Table
	if err := tc.DB.First(&table, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("table not found"))
		return
	}

	var reservations int64
	if err := tc.DB.Model(&models.Reservation{}).Where("table_id = ?", table.ID).Count(&reservations).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if reservations > 0 {
		utils.RespondError(c, http.StatusConflict, errors.New("table has reservations; deactivate it instead"))
		return
	}

	if err := tc.DB.Delete(&table).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	hub.BroadcastTableDelete(table.ID)
	utils.InfoLogger.Printf("Table %d deleted", table.ID)
	utils.RespondJSON(c, http.StatusOK, "Table deleted", gin.H{"id": table.ID})
}
