package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pavitra93/go-coliving-admin/shared/assets"
	"github.com/pavitra93/go-coliving-admin/shared/inventory"
	"github.com/pavitra93/go-coliving-admin/shared/models"
	"github.com/pavitra93/go-coliving-admin/shared/store"
	"github.com/pavitra93/go-coliving-admin/shared/utils"
)

// handleCreateMember accepts JSON, or multipart form data with an optional
// "image" file
func handleCreateMember(members *store.MemberStore, images assets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in store.CreateInput
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			if err := c.ShouldBind(&in); err != nil {
				utils.BadRequestResponse(c, "Invalid form data")
				return
			}
			ref, err := uploadImage(c, images)
			if err != nil {
				utils.DomainErrorResponse(c, err)
				return
			}
			in.ProfileAsset = ref
		} else if err := c.ShouldBindJSON(&in); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		member, err := members.Create(c.Request.Context(), in)
		if err != nil {
			discardImage(c, images, in.ProfileAsset)
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.CreatedResponse(c, "Member added successfully", member)
	}
}

// uploadImage stores the "image" form file, returning "" when none was sent
func uploadImage(c *gin.Context, images assets.Store) (string, error) {
	header, err := c.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return "", nil
	}
	if err != nil {
		return "", assets.ErrNotImage
	}

	f, err := header.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	blob, err := assets.ReadLimited(f)
	if err != nil {
		return "", err
	}
	return images.Put(c.Request.Context(), blob)
}

func discardImage(c *gin.Context, images assets.Store, ref string) {
	if ref == "" {
		return
	}
	if err := images.Delete(c.Request.Context(), ref); err != nil {
		logrus.WithError(err).WithField("asset", ref).Warn("Failed to clean up uploaded image")
	}
}

// handleListMembers supports status, gender, floor and q filters
func handleListMembers(members *store.MemberStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := store.ListFilter{Query: c.Query("q")}

		switch status := models.MemberStatus(c.Query("status")); status {
		case "", models.MemberStatusActive, models.MemberStatusInactive:
			filter.Status = status
		default:
			utils.BadRequestResponse(c, "status must be active or inactive")
			return
		}

		switch gender := models.Gender(c.Query("gender")); gender {
		case "", models.GenderMale, models.GenderFemale, models.GenderOther:
			filter.Gender = gender
		default:
			utils.BadRequestResponse(c, "gender must be male, female or other")
			return
		}

		if raw := c.Query("floor"); raw != "" {
			floor, err := members.Resolver().Inventory().ParseFloor(raw)
			if err != nil {
				utils.DomainErrorResponse(c, err)
				return
			}
			filter.Floor = floor
		}

		list, err := members.List(c.Request.Context(), filter)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Members retrieved successfully", gin.H{
			"members": list,
			"count":   len(list),
		})
	}
}

func parseMemberID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid member ID")
		return uuid.Nil, false
	}
	return id, true
}

func handleGetMember(members *store.MemberStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseMemberID(c)
		if !ok {
			return
		}

		member, err := members.Get(c.Request.Context(), id)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Member retrieved successfully", member)
	}
}

func handleUpdateMember(members *store.MemberStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseMemberID(c)
		if !ok {
			return
		}

		var patch store.UpdatePatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			utils.BadRequestResponse(c, "Invalid request format")
			return
		}

		member, err := members.Update(c.Request.Context(), id, patch)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Member updated successfully", member)
	}
}

// handleReplaceImage uploads a new profile image and drops the previous one
func handleReplaceImage(members *store.MemberStore, images assets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseMemberID(c)
		if !ok {
			return
		}

		current, err := members.Get(c.Request.Context(), id)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		ref, err := uploadImage(c, images)
		if err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}
		if ref == "" {
			utils.BadRequestResponse(c, "image file is required")
			return
		}

		member, err := members.Update(c.Request.Context(), id, store.UpdatePatch{ProfileAsset: &ref})
		if err != nil {
			discardImage(c, images, ref)
			utils.DomainErrorResponse(c, err)
			return
		}
		discardImage(c, images, current.ProfileAsset)

		utils.OKResponse(c, "Profile image updated successfully", member)
	}
}

func handleDeleteMember(members *store.MemberStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseMemberID(c)
		if !ok {
			return
		}

		if err := members.Remove(c.Request.Context(), id); err != nil {
			utils.DomainErrorResponse(c, err)
			return
		}

		utils.OKResponse(c, "Member deleted successfully", nil)
	}
}

// parseShareType reads a sharing type query parameter
func parseShareType(c *gin.Context, key string) (inventory.ShareType, bool) {
	t, err := inventory.ParseShareType(c.Query(key))
	if err != nil {
		utils.DomainErrorResponse(c, err)
		return "", false
	}
	return t, true
}
