package handlers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/autohelp/autohelp-backend/internal/models"
)

// ListCategories returns the flat category list.
func ListCategories(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []models.ServiceCategory
		if err := db.Order("name ASC").Find(&list).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch categories"})
			return
		}
		c.JSON(200, gin.H{"categories": list, "count": len(list)})
	}
}

type categoryNode struct {
	models.ServiceCategory
	Children []categoryNode `json:"children"`
}

// CategoryTree returns the taxonomy nested by parent.
func CategoryTree(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []models.ServiceCategory
		if err := db.Order("name ASC").Find(&list).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to fetch categories"})
			return
		}

		children := make(map[uint][]models.ServiceCategory)
		var roots []models.ServiceCategory
		for _, cat := range list {
			if cat.ParentID == nil {
				roots = append(roots, cat)
				continue
			}
			children[*cat.ParentID] = append(children[*cat.ParentID], cat)
		}

		var build func(cat models.ServiceCategory) categoryNode
		build = func(cat models.ServiceCategory) categoryNode {
			node := categoryNode{ServiceCategory: cat, Children: []categoryNode{}}
			for _, child := range children[cat.ID] {
				node.Children = append(node.Children, build(child))
			}
			return node
		}

		tree := make([]categoryNode, 0, len(roots))
		for _, root := range roots {
			tree = append(tree, build(root))
		}
		c.JSON(200, gin.H{"categories": tree})
	}
}
