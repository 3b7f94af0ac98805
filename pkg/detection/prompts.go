package detection

// DescribePrompt checks whether the model can see the image at all
const DescribePrompt = `What do you see in this image? Describe it briefly.`

// ClassifyPrompt asks for binary attributes and one overall 0-100 grade
const ClassifyPrompt = `Analyze this marketplace product photo and return ONLY a JSON object with these exact fields.
Do NOT add any explanation or text outside the JSON.

{
  "overall_score": 0,
  "has_clean_white_background": true/false,
  "is_product_centered": true/false,
  "has_good_lighting": true/false,
  "is_sharp_focus": true/false,
  "has_no_watermarks": true/false,
  "professional_appearance": true/false,
  "detected_photo_type": "studio" | "lifestyle" | "scale" | "detail" | "group" | "packaging" | "process" | "unknown",
  "has_studio_shot": true/false,
  "has_lifestyle_shot": true/false,
  "has_scale_shot": true/false,
  "has_detail_shot": true/false,
  "has_group_shot": true/false,
  "has_packaging_shot": true/false,
  "has_process_shot": true/false
}

CRITERIA:
- overall_score: integer 0-100, how likely this photo is to convert a buyer on a marketplace listing
- has_clean_white_background: background is clean and uncluttered (white, gray, beige or a simple neutral texture)
- is_product_centered: the main product is prominently positioned
- has_good_lighting: the product is well lit and details are visible
- is_sharp_focus: the product is in focus and details are clear
- has_no_watermarks: there are NO text overlays, logos or watermarks
- professional_appearance: the image looks intentionally styled and composed

PHOTO TYPES (if it partially fits, mark true):
- studio: clean simple background, product is the clear focus
- lifestyle: product in a real setting, in use, or in a styled environment
- scale: any object near the product that helps judge its size (hands, books, cups, plants)
- detail: close-up showing texture, material or craftsmanship
- group: multiple products or variations together
- packaging: product packaging is visible
- process: behind-the-scenes or making-of shot

JSON only. No markdown, no code fences, no comments, no trailing commas.`

// LocatePrompt asks for one normalized product box
const LocatePrompt = `You are a product locator for marketplace photos.

Return JSON only:
{
  "primary": {
    "label": "string",
    "confidence": 0.0,
    "box": {"x": 0.0, "y": 0.0, "w": 0.0, "h": 0.0}
  }
}

RULES
- All coordinates are normalized to [0,1] (NOT pixels); x,y is the top-left corner.
- The box should tightly include the product being sold, not props or background.
- confidence is in [0,1].
- If no product is visible, return {"primary":{"label":"none","confidence":0.0,"box":{"x":0,"y":0,"w":0,"h":0}}}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`
