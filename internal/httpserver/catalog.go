package httpserver

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dimmoon69/booktime/internal/models"
	"github.com/dimmoon69/booktime/internal/service"
	"github.com/dimmoon69/booktime/internal/transport"
	"github.com/dimmoon69/booktime/pkg/logging"
)

const maxUploadBytes = 10 << 20

type CatalogHTTP struct {
	Svc    *service.CatalogService
	Images *service.ImageService
}

// GetProducts lists active products. The tag query parameter takes a tag slug
// or "all".
func (h *CatalogHTTP) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_products")

	page, items, err := h.Svc.ListProducts(ctx, c.QueryParam("tag"), intQuery(c, "page", 1), intQuery(c, "size", 0))
	if err != nil {
		return fail(l, "get_products_failed", err)
	}
	return c.JSON(http.StatusOK, transport.ListResponse[models.Product]{Data: items, Meta: page})
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_product", "slug", c.Param("slug"))

	p, err := h.Svc.GetProduct(ctx, c.Param("slug"))
	if err != nil {
		return fail(l, "get_product_failed", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search")

	page, items, err := h.Svc.SearchProducts(ctx, c.QueryParam("q"), intQuery(c, "page", 1), intQuery(c, "size", 0))
	if err != nil {
		return fail(l, "search_failed", err)
	}
	return c.JSON(http.StatusOK, transport.ListResponse[models.Product]{Data: items, Meta: page})
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_product")

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "product_create_failed", "invalid body", err)
	}

	in := service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Slug:        req.Slug,
		Active:      req.Active == nil || *req.Active,
		InStock:     req.InStock == nil || *req.InStock,
		Tags:        req.Tags,
	}
	p, err := h.Svc.CreateProduct(ctx, in)
	if err != nil {
		return fail(l, "product_create_failed", err)
	}

	l.Info("product_created", "product_id", p.ID)
	return c.JSON(http.StatusCreated, p)
}

func (h *CatalogHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.patch_product")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "product_patch_failed", "id not a uuid", err)
	}
	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "product_patch_failed", "invalid body", err)
	}

	p, err := h.Svc.UpdateProduct(ctx, id, service.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Slug:        req.Slug,
		Active:      req.Active,
		InStock:     req.InStock,
		Tags:        req.Tags,
	})
	if err != nil {
		return fail(l, "product_patch_failed", err)
	}

	l.Info("product_patched", "product_id", p.ID)
	return c.JSON(http.StatusOK, p)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_product")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "product_delete_failed", "id not a uuid", err)
	}
	if err := h.Svc.DeleteProduct(ctx, id); err != nil {
		return fail(l, "product_delete_failed", err)
	}

	l.Info("product_deleted", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}

// UploadImage takes a multipart "image" file.
func (h *CatalogHTTP) UploadImage(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.upload_image")

	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(l, "image_upload_failed", "id not a uuid", err)
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return badRequest(l, "image_upload_failed", "image file required", err)
	}
	f, err := fh.Open()
	if err != nil {
		return badRequest(l, "image_upload_failed", "cannot read image", err)
	}
	defer f.Close()

	payload, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
	if err != nil {
		return badRequest(l, "image_upload_failed", "cannot read image", err)
	}

	img, err := h.Images.Upload(ctx, id, fh.Filename, payload)
	if err != nil {
		return fail(l, "image_upload_failed", err)
	}
	return c.JSON(http.StatusCreated, img)
}

func (h *CatalogHTTP) RegenerateThumbnails(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.regenerate_thumbnails")

	res, err := h.Images.Regenerate(ctx, intQuery(c, "workers", 4))
	if err != nil {
		return fail(l, "regenerate_failed", err)
	}
	return c.JSON(http.StatusOK, transport.RegenerateResponse{Done: res.Done, Failed: res.Failed})
}

func (h *CatalogHTTP) GetTags(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_tags")

	tags, err := h.Svc.ListTags(ctx, false)
	if err != nil {
		return fail(l, "get_tags_failed", err)
	}
	return c.JSON(http.StatusOK, tags)
}

// GetAllTags includes deactivated tags.
func (h *CatalogHTTP) GetAllTags(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_all_tags")

	tags, err := h.Svc.ListTags(ctx, true)
	if err != nil {
		return fail(l, "get_tags_failed", err)
	}
	return c.JSON(http.StatusOK, tags)
}

func (h *CatalogHTTP) GetTag(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_tag")

	t, err := h.Svc.GetTag(ctx, c.Param("slug"))
	if err != nil {
		return fail(l, "get_tag_failed", err)
	}
	if !t.Active {
		return fail(l, "get_tag_failed", service.ErrNotFound)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *CatalogHTTP) CreateTag(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_tag")

	var req transport.TagRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "tag_create_failed", "invalid body", err)
	}
	t, err := h.Svc.CreateTag(ctx, service.TagInput(req))
	if err != nil {
		return fail(l, "tag_create_failed", err)
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *CatalogHTTP) PatchTag(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.patch_tag")

	var req transport.TagRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "tag_patch_failed", "invalid body", err)
	}
	t, err := h.Svc.UpdateTag(ctx, c.Param("slug"), service.TagInput(req))
	if err != nil {
		return fail(l, "tag_patch_failed", err)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *CatalogHTTP) DeactivateTag(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.deactivate_tag")

	if _, err := h.Svc.DeactivateTag(ctx, c.Param("slug")); err != nil {
		return fail(l, "tag_deactivate_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}
