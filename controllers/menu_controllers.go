package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/tableorder/models"
	"github.com/yeremiapane/tableorder/repository"
	"github.com/yeremiapane/tableorder/utils"
)

type MenuController struct {
	Menu *repository.MenuCatalog
}

func NewMenuController(menu *repository.MenuCatalog) *MenuController {
	return &MenuController{Menu: menu}
}

// menuInput is the admin payload; Available defaults to true.
type menuInput struct {
	Name        string               `json:"name"`
	Price       decimal.Decimal      `json:"price"`
	Category    string               `json:"category"`
	Available   *bool                `json:"available"`
	Description string               `json:"description"`
	Image       string               `json:"image"`
	Options     []models.OptionGroup `json:"options"`
}

func (in menuInput) toModel() *models.MenuItem {
	item := &models.MenuItem{
		Name:        in.Name,
		Price:       in.Price,
		Category:    in.Category,
		Available:   true,
		Description: in.Description,
		Image:       in.Image,
		Options:     in.Options,
	}
	if in.Available != nil {
		item.Available = *in.Available
	}
	return item
}

// GetAllMenus -> catalog, optionally ?category=
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	items, err := mc.Menu.List(c.Request.Context(), c.Query("category"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}

func (mc *MenuController) GetMenuByID(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	item, err := mc.Menu.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu detail", item)
}

func (mc *MenuController) CreateMenu(c *gin.Context) {
	var input menuInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	item := input.toModel()
	if err := mc.Menu.Create(c.Request.Context(), item); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Menu item created: %s (id=%d)", item.Name, item.ID)
	utils.RespondJSON(c, http.StatusCreated, "Menu item created", item)
}

func (mc *MenuController) UpdateMenu(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	var input menuInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	item := input.toModel()
	item.ID = id
	if err := mc.Menu.Update(c.Request.Context(), item); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Menu item updated", item)
}

func (mc *MenuController) DeleteMenu(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if err := mc.Menu.Delete(c.Request.Context(), id); err != nil {
		respondServiceError(c, err)
		return
	}
	utils.InfoLogger.Printf("Menu item deleted: id=%d", id)
	utils.RespondJSON(c, http.StatusOK, "Menu item deleted", nil)
}
